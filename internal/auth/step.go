package auth

import "fmt"

// Step is a position in a registration or login conversation.
// The zero value is not a step; a conversation holding it is corrupt.
type Step uint8

const (
	_ Step = iota
	StepUsername
	StepNickname
	StepPassword
	StepEmail
	StepRegisterConfirm
	StepLoginUsername
	StepLoginPassword
	StepLoginConfirm
)

var stepNames = map[Step]string{
	StepUsername:        "username",
	StepNickname:        "nickname",
	StepPassword:        "password",
	StepEmail:           "email",
	StepRegisterConfirm: "registerConfirm",
	StepLoginUsername:   "loginUsername",
	StepLoginPassword:   "loginPassword",
	StepLoginConfirm:    "loginConfirm",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

// Valid reports whether s is one of the declared steps.
func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

// ParseStep resolves a step by its string form.
func ParseStep(name string) (Step, bool) {
	for s, n := range stepNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// MarshalText encodes the step by name so persisted conversations stay readable.
func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("auth: cannot encode %s", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText rejects unknown names.
func (s *Step) UnmarshalText(b []byte) error {
	v, ok := ParseStep(string(b))
	if !ok {
		return fmt.Errorf("auth: unknown step %q", string(b))
	}
	*s = v
	return nil
}

// Flow is the branch a step belongs to.
type Flow string

const (
	FlowRegister Flow = "register"
	FlowLogin    Flow = "login"
)

// Flow returns the branch of s, or "" for an invalid step.
func (s Step) Flow() Flow {
	switch s {
	case StepUsername, StepNickname, StepPassword, StepEmail, StepRegisterConfirm:
		return FlowRegister
	case StepLoginUsername, StepLoginPassword, StepLoginConfirm:
		return FlowLogin
	}
	return ""
}

// Confirming reports whether s waits for the confirm or cancel button.
func (s Step) Confirming() bool {
	return s == StepRegisterConfirm || s == StepLoginConfirm
}

// Trigger is a button press the machine reacts to.
type Trigger string

const (
	TriggerRegister Trigger = "register"
	TriggerLogin    Trigger = "login"
	TriggerConfirm  Trigger = "confirm"
	TriggerCancel   Trigger = "cancel"
)

// Triggers lists every trigger in button order.
var Triggers = []Trigger{TriggerRegister, TriggerLogin, TriggerConfirm, TriggerCancel}

// ParseTrigger resolves callback data to a trigger.
func ParseTrigger(s string) (Trigger, bool) {
	for _, t := range Triggers {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}
