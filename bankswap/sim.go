package bankswap

// Sim is a host-side Driver for tests and cmd/bootctl. Because SetSwap
// models a device reset, which a host process cannot literally do, Sim
// instead records the flip and invokes a caller-supplied OnReset
// continuation synchronously — the same role a real reset plays for the
// bootloader's control flow, minus the actual hardware reset.
type Sim struct {
	swapped bool
	// OnReset is invoked by SetSwap after recording the flip, standing in
	// for "the device resets and the bootloader runs again". It may be
	// nil; boot's tests and cmd/bootctl leave it unset and call
	// boot.Engine.Run again themselves for the next simulated boot.
	OnReset func()
}

func NewSim() *Sim { return &Sim{} }

// NewSimWithState creates a Sim whose swap bit starts at swapped, for
// reloading persisted simulator state across process invocations.
func NewSimWithState(swapped bool) *Sim { return &Sim{swapped: swapped} }

// Swapped reports the current swap bit without the Driver interface's
// error return, for callers (like cmd/bootctl) that already know reading
// a host-side Sim cannot fail.
func (s *Sim) Swapped() bool { return s.swapped }

func (s *Sim) ReadSwap() (bool, error) { return s.swapped, nil }

func (s *Sim) SetSwap(enable bool) error {
	s.swapped = enable
	if s.OnReset != nil {
		s.OnReset()
	}
	return nil
}
