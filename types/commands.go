package types

// Typed payloads for the pins control surface. Control messages arrive on
// pins/control/<verb>; replies go back over the message's ReplyTo topic.

// ------------------------
// Requests
// ------------------------

type PinRequest struct {
	Pin   int     `json:"pin"`
	Owner string  `json:"owner"`
	Label string  `json:"label"`
	Mode  PinMode `json:"mode"`
}

type PinRelease struct {
	Pin int `json:"pin"`
}

type PinConfigure struct {
	Pin  int     `json:"pin"`
	Mode PinMode `json:"mode"`
}

type ZoneAssign struct {
	Pin  int    `json:"pin"`
	Zone string `json:"zone"`
}

type ZoneRemove struct {
	Pin int `json:"pin"`
}

type PinQuery struct {
	Pin int `json:"pin"`
}

type ZoneSafeMode struct {
	Zone string `json:"zone"`
}

// EstopCommand triggers the global emergency stop. It has no failure mode;
// an empty reason is recorded as "remote_estop".
type EstopCommand struct {
	Reason string `json:"reason,omitempty"`
	Source string `json:"source,omitempty"`
}

// ClearSafeMode is the explicit, operator-authorised exit from global safe
// mode. Safe mode is never cleared implicitly.
type ClearSafeMode struct {
	Source string `json:"source"`
}

// ------------------------
// Replies
// ------------------------

type Ack struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type PinInfoReply struct {
	OK   bool    `json:"ok"`
	Info PinInfo `json:"info"`
}

type StatusReply struct {
	OK     bool       `json:"ok"`
	Status PinsStatus `json:"status"`
}
