package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/lead-webhooks/internal/entity"
)

func applyKind(t *testing.T, kind Kind, lead *entity.Lead, ev *Event, opt Options) {
	t.Helper()
	desc, ok := Kinds[kind]
	if !ok {
		t.Fatalf("no descriptor for kind %s", kind)
	}
	ev.Kind = kind
	desc.Mutate(lead, ev, opt)
}

func TestDeliveredSetsDeliveredTrue(t *testing.T) {
	lead := &entity.Lead{Status: entity.StatusEmailNotSent}

	applyKind(t, KindDelivered, lead, &Event{Event: "delivered"}, Options{})

	assert.True(t, lead.Delivered)
	assert.Equal(t, "delivered", lead.Status)
}

func TestDroppedAfterDeliveredClearsDelivered(t *testing.T) {
	lead := &entity.Lead{}

	applyKind(t, KindDelivered, lead, &Event{Event: "delivered"}, Options{})
	assert.True(t, lead.Delivered)

	applyKind(t, KindDropped, lead, &Event{
		Event:       "dropped",
		Code:        "605",
		Reason:      "hardfail",
		Description: "previously bounced",
	}, Options{})

	assert.False(t, lead.Delivered)
	assert.True(t, lead.Dropped)
	assert.Equal(t, "dropped", lead.Status)
	assert.Equal(t, "605", lead.DroppedCode)
	assert.Equal(t, "hardfail", lead.DroppedReason)
	assert.Equal(t, "previously bounced", lead.DroppedDesc)
}

func TestBouncedCopiesCodeAndError(t *testing.T) {
	lead := &entity.Lead{Delivered: true}

	applyKind(t, KindBounced, lead, &Event{
		Event: "bounce",
		Code:  "550",
		Error: "mailbox unavailable",
	}, Options{})

	assert.False(t, lead.Delivered)
	assert.True(t, lead.Bounced)
	assert.Equal(t, "bounce", lead.Status)
	assert.Equal(t, "550", lead.DroppedCode)
	assert.Equal(t, "mailbox unavailable", lead.BounceError)
}

func TestSpamComplaintIsIdempotent(t *testing.T) {
	lead := &entity.Lead{Delivered: true}
	ev := &Event{Event: "spam-complaint"}

	applyKind(t, KindSpamComplaint, lead, ev, Options{})
	first := *lead

	applyKind(t, KindSpamComplaint, lead, ev, Options{})

	assert.True(t, lead.Spam)
	assert.Equal(t, first, *lead, "second application must change nothing")
}

func TestUnsubscribeSetsFlag(t *testing.T) {
	lead := &entity.Lead{Delivered: true}

	applyKind(t, KindUnsubscribe, lead, &Event{Event: "unsubscribe"}, Options{})

	assert.True(t, lead.Unsub)
	assert.False(t, lead.Delivered)
	assert.Equal(t, "unsubscribe", lead.Status)
}

func TestClickIncrementsByOne(t *testing.T) {
	lead := &entity.Lead{Clicks: 2}

	applyKind(t, KindClick, lead, &Event{
		Event:      "click",
		IP:         "10.0.0.7",
		DeviceType: "mobile",
	}, Options{})

	assert.Equal(t, 3, lead.Clicks)
	assert.Equal(t, "10.0.0.7", lead.ClickIP)
	assert.Equal(t, "mobile", lead.ClickDevice)
	assert.False(t, lead.Delivered)
}

func TestOpenIncrementsByOne(t *testing.T) {
	lead := &entity.Lead{Opens: 1}

	applyKind(t, KindOpen, lead, &Event{
		Event:      "open",
		IP:         "10.0.0.8",
		DeviceType: "desktop",
	}, Options{})

	assert.Equal(t, 2, lead.Opens)
	assert.Equal(t, "10.0.0.8", lead.OpenIP)
	assert.Equal(t, "desktop", lead.OpenDevice)
}

func TestLegacyCountersDouble(t *testing.T) {
	lead := &entity.Lead{Clicks: 3, Opens: 2}
	opt := Options{LegacyCounters: true}

	applyKind(t, KindClick, lead, &Event{Event: "click"}, opt)
	applyKind(t, KindOpen, lead, &Event{Event: "open"}, opt)

	assert.Equal(t, 6, lead.Clicks)
	assert.Equal(t, 4, lead.Opens)
}

func TestLegacyCounterAtZeroStaysZero(t *testing.T) {
	lead := &entity.Lead{}

	applyKind(t, KindClick, lead, &Event{Event: "click"}, Options{LegacyCounters: true})

	// The historical doubling never moves a zero counter.
	assert.Equal(t, 0, lead.Clicks)
}

func TestOnlyDeliveredSetsDelivered(t *testing.T) {
	for kind := range Kinds {
		lead := &entity.Lead{Delivered: true}

		applyKind(t, kind, lead, &Event{Event: string(kind)}, Options{})

		if kind == KindDelivered {
			assert.True(t, lead.Delivered, "kind %s", kind)
		} else {
			assert.False(t, lead.Delivered, "kind %s", kind)
		}
	}
}

func TestResponseIDFieldSelection(t *testing.T) {
	for kind, desc := range Kinds {
		if kind == KindOpen {
			assert.Equal(t, "v_id", desc.ResponseIDField)
		} else {
			assert.Equal(t, "l_id", desc.ResponseIDField, "kind %s", kind)
		}
	}
}

func TestTerminalNegativeKindsNotify(t *testing.T) {
	notify := map[Kind]bool{
		KindDelivered:     false,
		KindDropped:       true,
		KindBounced:       true,
		KindSpamComplaint: true,
		KindUnsubscribe:   true,
		KindClick:         false,
		KindOpen:          false,
	}

	for kind, want := range notify {
		assert.Equal(t, want, Kinds[kind].Notify, "kind %s", kind)
	}
}
