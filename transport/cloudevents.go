package transport

import (
	"encoding/json"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/mitchellwrosen/gentw"
)

// EventType is the CloudEvents "type" attribute used for every encoded
// timewarp event.
const EventType = "dev.timewarp.event.v1"

// wireEvent is the JSON-serializable shape of a timewarp.Event, used as a
// CloudEvent's data payload. A live Ref can't cross the wire, so a
// causally-linked event's origin is carried as an opaque actor id that
// the receiving side resolves through its own registry.
type wireEvent struct {
	LVT          uint64          `json:"lvt"`
	ID           string          `json:"id"`
	IsEvent      bool            `json:"isEvent"`
	LinkOriginID string          `json:"linkOriginId,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// RefResolver maps an actor id back to a live Ref on the receiving side,
// used to rehydrate a decoded event's causal link.
type RefResolver interface {
	Resolve(id string) (timewarp.Ref, bool)
}

// CloudEventsCodec encodes/decodes timewarp.Event values as CloudEvents,
// for actors reachable over a remote transport (spec.md's external
// "notify(ref, event_or_list)" collaborator, given a wire form).
// Grounded on the teacher's observer_cloudevents.go NewCloudEvent helper.
type CloudEventsCodec struct {
	Source string
}

// Encode converts e into a CloudEvent whose source is the codec's Source.
// linkOriginID, if non-empty, is the id of the actor e.Link refers to, and
// payload is marshalled to JSON as the event's payload.
func (c CloudEventsCodec) Encode(e timewarp.Event, linkOriginID string, payload any) (cloudevents.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return cloudevents.Event{}, fmt.Errorf("transport: marshal event payload: %w", err)
	}

	we := wireEvent{
		LVT:          uint64(e.LVT),
		ID:           string(e.ID),
		IsEvent:      e.IsEvent,
		LinkOriginID: linkOriginID,
		Payload:      raw,
	}

	out := cloudevents.NewEvent()
	out.SetID(string(e.ID))
	out.SetSource(c.Source)
	out.SetType(EventType)
	out.SetTime(time.Now())
	out.SetSpecVersion(cloudevents.VersionV1)
	if err := out.SetData(cloudevents.ApplicationJSON, we); err != nil {
		return cloudevents.Event{}, fmt.Errorf("transport: set cloudevent data: %w", err)
	}
	return out, nil
}

// Decode reconstructs a timewarp.Event and its raw JSON payload from a
// CloudEvent, resolving any causal link through resolver.
func (c CloudEventsCodec) Decode(ce cloudevents.Event, resolver RefResolver) (timewarp.Event, json.RawMessage, error) {
	var we wireEvent
	if err := json.Unmarshal(ce.Data(), &we); err != nil {
		return timewarp.Event{}, nil, fmt.Errorf("transport: unmarshal cloudevent data: %w", err)
	}

	e := timewarp.Event{
		LVT:     timewarp.LVT(we.LVT),
		ID:      timewarp.EventID(we.ID),
		IsEvent: we.IsEvent,
	}
	if we.LinkOriginID != "" && resolver != nil {
		if origin, ok := resolver.Resolve(we.LinkOriginID); ok {
			e = timewarp.NewLinkedEvent(origin, e.LVT, nil)
			e.ID = timewarp.EventID(we.ID) // preserve the original id across the wire
		}
	}
	return e, we.Payload, nil
}
