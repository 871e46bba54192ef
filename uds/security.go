package uds

import (
	"fmt"

	"github.com/nikolamrkic91-arch/ecutool/seedkey"
)

// SecurityState tracks one security-access attempt.
type SecurityState int

const (
	Locked SecurityState = iota
	SeedRequested
	Unlocked
	Failed
)

func (s SecurityState) String() string {
	switch s {
	case Locked:
		return "locked"
	case SeedRequested:
		return "seed requested"
	case Unlocked:
		return "unlocked"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Security-access steps, used in failure reports.
const (
	StepRequestSeed = "request seed"
	StepDeriveKey   = "derive key"
	StepSendKey     = "send key"
)

// SecurityAccessError reports which step of an unlock attempt failed.
type SecurityAccessError struct {
	ECU   uint16
	Level seedkey.Level
	Step  string
	Err   error
}

func (e *SecurityAccessError) Error() string {
	return fmt.Sprintf("uds: security access to 0x%04X level %d: %s: %v", e.ECU, e.Level, e.Step, e.Err)
}

func (e *SecurityAccessError) Unwrap() error { return e.Err }

// SecurityAccess drives the seed-request → key-compute → key-send sequence
// for one ECU and level. It is scoped to a single unlock attempt; the seed
// is discarded as soon as the key has been sent and the key is never kept.
type SecurityAccess struct {
	client   *Client
	strategy seedkey.Strategy
	ecu      uint16
	level    seedkey.Level
	state    SecurityState
	seed     [4]byte
}

// NewSecurityAccess prepares an unlock attempt against one ECU.
func NewSecurityAccess(client *Client, strategy seedkey.Strategy, ecu uint16, level seedkey.Level) *SecurityAccess {
	return &SecurityAccess{
		client:   client,
		strategy: strategy,
		ecu:      ecu,
		level:    level,
		state:    Locked,
	}
}

// State returns the current state of the attempt.
func (a *SecurityAccess) State() SecurityState { return a.state }

// RequestSeed asks the ECU for a seed challenge using the odd subfunction
// (2*level-1). The seed sits at bytes 2..5 of the raw response.
func (a *SecurityAccess) RequestSeed() error {
	sub := 2*byte(a.level) - 1
	raw, err := a.client.trans.Exchange(a.ecu, []byte{ServiceSecurityAccess, sub})
	if err != nil {
		return a.fail(StepRequestSeed, err)
	}
	resp, err := ParseResponse(raw)
	if err != nil {
		return a.fail(StepRequestSeed, err)
	}
	if resp.Service != ServiceSecurityAccess+PositiveResponseOffset || len(raw) < 6 {
		return a.fail(StepRequestSeed, &UnexpectedResponseError{Response: raw})
	}
	copy(a.seed[:], raw[2:6])
	a.state = SeedRequested
	a.client.log.Debug().Uint16("ecu", a.ecu).Msg("seed received")
	return nil
}

// SendKey answers the challenge using the even subfunction (2*level). It
// must follow a successful RequestSeed.
func (a *SecurityAccess) SendKey(key [4]byte) error {
	if a.state != SeedRequested {
		return a.fail(StepSendKey, fmt.Errorf("no outstanding seed (state %s)", a.state))
	}
	a.seed = [4]byte{}

	sub := 2 * byte(a.level)
	req := append([]byte{ServiceSecurityAccess, sub}, key[:]...)
	raw, err := a.client.trans.Exchange(a.ecu, req)
	if err != nil {
		return a.fail(StepSendKey, err)
	}
	resp, err := ParseResponse(raw)
	if err != nil {
		return a.fail(StepSendKey, err)
	}
	if resp.Service != ServiceSecurityAccess+PositiveResponseOffset {
		return a.fail(StepSendKey, &UnexpectedResponseError{Request: req, Response: raw})
	}
	a.state = Unlocked
	a.client.log.Debug().Uint16("ecu", a.ecu).Msg("ecu unlocked")
	return nil
}

// Unlock runs the whole sequence. Any failing step aborts the attempt,
// reports the step, and performs no further steps. There is no retry.
func (a *SecurityAccess) Unlock() error {
	if err := a.RequestSeed(); err != nil {
		return err
	}
	key, err := a.strategy.DeriveKey(a.seed, a.level)
	if err != nil {
		return a.fail(StepDeriveKey, err)
	}
	return a.SendKey(key)
}

func (a *SecurityAccess) fail(step string, err error) error {
	a.state = Failed
	a.seed = [4]byte{}
	return &SecurityAccessError{ECU: a.ecu, Level: a.level, Step: step, Err: err}
}

// Unlock performs a complete, single-shot security-access handshake. The
// attempt state is discarded when the call returns.
func (c *Client) Unlock(ecu uint16, level seedkey.Level, strategy seedkey.Strategy) error {
	return NewSecurityAccess(c, strategy, ecu, level).Unlock()
}
