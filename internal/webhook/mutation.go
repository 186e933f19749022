package webhook

import (
	"github.com/xavierca1/lead-webhooks/internal/entity"
)

// Options tunes mutation behavior.
type Options struct {
	// LegacyCounters replays the historical `opens += opens` /
	// `clicks += clicks` doubling instead of incrementing by one. Off by
	// default; only enable when byte-compatibility with old data matters.
	LegacyCounters bool
}

// Mutation is one pure state transition. It is total: any well-formed event
// applies without error.
type Mutation func(lead *entity.Lead, ev *Event, opt Options)

// Descriptor drives the single generic handler: which mutation runs, which id
// the success envelope carries, and whether operations get alerted.
type Descriptor struct {
	Mutate          Mutation
	ResponseIDField string
	Notify          bool
}

var Kinds = map[Kind]Descriptor{
	KindDelivered: {
		ResponseIDField: "l_id",
		Mutate: func(lead *entity.Lead, ev *Event, _ Options) {
			lead.Delivered = true
			lead.Status = ev.Event
		},
	},
	KindDropped: {
		ResponseIDField: "l_id",
		Notify:          true,
		Mutate: func(lead *entity.Lead, ev *Event, _ Options) {
			lead.Delivered = false
			lead.Status = ev.Event
			lead.Dropped = true
			lead.DroppedCode = ev.Code
			lead.DroppedReason = ev.Reason
			lead.DroppedDesc = ev.Description
		},
	},
	KindBounced: {
		ResponseIDField: "l_id",
		Notify:          true,
		Mutate: func(lead *entity.Lead, ev *Event, _ Options) {
			lead.Delivered = false
			lead.Status = ev.Event
			lead.Bounced = true
			lead.DroppedCode = ev.Code
			lead.BounceError = ev.Error
		},
	},
	KindSpamComplaint: {
		ResponseIDField: "l_id",
		Notify:          true,
		Mutate: func(lead *entity.Lead, ev *Event, _ Options) {
			lead.Delivered = false
			lead.Status = ev.Event
			lead.Spam = true
		},
	},
	KindUnsubscribe: {
		ResponseIDField: "l_id",
		Notify:          true,
		Mutate: func(lead *entity.Lead, ev *Event, _ Options) {
			lead.Delivered = false
			lead.Status = ev.Event
			lead.Unsub = true
		},
	},
	KindClick: {
		ResponseIDField: "l_id",
		Mutate: func(lead *entity.Lead, ev *Event, opt Options) {
			lead.Delivered = false
			lead.Status = ev.Event
			lead.Clicks = bump(lead.Clicks, opt)
			lead.ClickIP = ev.IP
			lead.ClickDevice = ev.DeviceType
		},
	},
	KindOpen: {
		// The open envelope keys off the appended visitor id, not the lead id.
		ResponseIDField: "v_id",
		Mutate: func(lead *entity.Lead, ev *Event, opt Options) {
			lead.Delivered = false
			lead.Status = ev.Event
			lead.Opens = bump(lead.Opens, opt)
			lead.OpenIP = ev.IP
			lead.OpenDevice = ev.DeviceType
		},
	},
}

func bump(n int, opt Options) int {
	if opt.LegacyCounters {
		return n + n
	}
	return n + 1
}
