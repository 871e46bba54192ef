// Package coding applies named coding modifications to a vehicle. Applying
// a modification opens an extended diagnostic session on the target ECU,
// unlocks it for coding and writes every parameter the modification names.
// Each attempt is logged to the transaction history, success or not.
package coding

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nikolamrkic91-arch/ecutool/config"
	"github.com/nikolamrkic91-arch/ecutool/history"
	"github.com/nikolamrkic91-arch/ecutool/seedkey"
	"github.com/nikolamrkic91-arch/ecutool/uds"
)

// StepError reports which step of a modification failed.
type StepError struct {
	Modification string
	Step         string
	Err          error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("coding: %s: %s: %v", e.Modification, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Applicator applies modifications from a vehicle profile.
type Applicator struct {
	log      zerolog.Logger
	profile  *config.Profile
	client   *uds.Client
	strategy seedkey.Strategy
	store    history.Store
}

// Option configures an Applicator.
type Option func(*Applicator)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Applicator) { a.log = log }
}

// NewApplicator builds an Applicator. Attempts are recorded to store.
func NewApplicator(profile *config.Profile, client *uds.Client, strategy seedkey.Strategy, store history.Store, opts ...Option) *Applicator {
	a := &Applicator{
		log:      zerolog.Nop(),
		profile:  profile,
		client:   client,
		strategy: strategy,
		store:    store,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply runs the named modification against the vehicle with the given VIN.
// The first failing step aborts the attempt; parameters already written
// stay written. The attempt is logged either way.
func (a *Applicator) Apply(name, vin string) error {
	mod, ok := a.profile.Modifications[name]
	if !ok {
		return fmt.Errorf("coding: unknown modification %q", name)
	}
	err := a.apply(name, mod)
	a.record(name, vin, mod, err)
	return err
}

func (a *Applicator) apply(name string, mod config.Modification) error {
	ecu, err := a.profile.ECUAddress(mod.ECU)
	if err != nil {
		return &StepError{Modification: name, Step: "resolve ecu", Err: err}
	}
	a.log.Info().Str("modification", name).Str("ecu", mod.ECU).Msg("applying modification")

	if err := a.client.StartSession(ecu, uds.SessionExtended); err != nil {
		return &StepError{Modification: name, Step: "start extended session", Err: err}
	}
	if err := a.client.Unlock(ecu, seedkey.LevelCoding, a.strategy); err != nil {
		return &StepError{Modification: name, Step: "unlock", Err: err}
	}
	for _, param := range mod.Parameters {
		if err := a.client.WriteParameter(ecu, param.DID, []byte(param.Value)); err != nil {
			return &StepError{Modification: name, Step: fmt.Sprintf("write %s", param.Name), Err: err}
		}
		a.log.Debug().Str("parameter", param.Name).Str("value", param.Value).Msg("parameter written")
	}
	return nil
}

func (a *Applicator) record(name, vin string, mod config.Modification, applyErr error) {
	status := history.StatusSuccess
	desc := fmt.Sprintf("%s on %s", name, mod.ECU)
	if applyErr != nil {
		status = history.StatusFailed
		desc = fmt.Sprintf("%s on %s: %v", name, mod.ECU, applyErr)
	}
	rec := history.NewRecord(history.TypeCoding, vin, a.profile.Vehicle.Description(), desc, status)
	if err := a.store.Append(rec); err != nil {
		a.log.Warn().Err(err).Msg("failed to log transaction")
	}
}
