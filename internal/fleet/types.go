package fleet

// Registry limits.
const (
	// MaxNameLength bounds vehicle ids, model names and consist ids.
	// Longer input is truncated, not rejected.
	MaxNameLength = 14

	// MaxFunctions bounds the function list of a model. Extra entries
	// are dropped on declaration.
	MaxFunctions = 16

	// MinAddress and MaxAddress bound mobile decoder addresses. Address
	// 0 is the broadcast address and never belongs to a vehicle.
	MinAddress = 1
	MaxAddress = 127

	// MaxSpeed is the registry clamp for stored speeds. It is wider
	// than what a 28-step instruction can express: a clamped 29-31
	// is stored but refused by the encoder.
	MaxSpeed = 31
)

// Kind classifies what a decoder model is mounted in.
type Kind int

// Decoder model kinds.
const (
	// KindNoDecoder is the default for unknown kind strings and for
	// vehicles whose model was never declared.
	KindNoDecoder Kind = iota

	// KindCar is a decoder in rolling stock (lights, sound), no motor.
	KindCar

	// KindEngine is a motor decoder.
	KindEngine
)

// ParseKind maps a configuration kind string to a Kind.
// "engine" and "locomotive" are motor decoders, "car" and "dummy" are
// unpowered; anything else means no decoder.
func ParseKind(s string) Kind {
	switch s {
	case "engine", "locomotive":
		return KindEngine
	case "car", "dummy":
		return KindCar
	default:
		return KindNoDecoder
	}
}

// String returns the canonical configuration name for the kind.
func (k Kind) String() string {
	switch k {
	case KindEngine:
		return "engine"
	case KindCar:
		return "car"
	default:
		return "none"
	}
}

// Function names one controllable decoder function and its DCC index
// (1-12, or 13 for the headlight).
type Function struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// Model describes one type of decoder installation: its kind and the
// functions it exposes. Vehicles reference models by name.
type Model struct {
	Name      string
	Kind      Kind
	Functions []Function
}

// Vehicle is one addressable unit on the track.
type Vehicle struct {
	ID        string
	Model     string
	Address   int
	Speed     int
	Functions uint16

	// Consist is the id of the consist this vehicle is assigned to,
	// empty when it runs alone.
	Consist string

	// Mode is the vehicle's role within its consist.
	Mode Mode
}

// Mode is a consist member role.
type Mode string

// Consist member modes.
const (
	// ModeForward runs the member at the consist speed.
	ModeForward Mode = "f"

	// ModeReverse runs the member at the negated consist speed
	// (back-to-back coupling).
	ModeReverse Mode = "r"

	// ModeIdle keeps the member powered but stationary.
	ModeIdle Mode = "i"

	// ModeDisabled excludes the member from consist commands.
	ModeDisabled Mode = "d"
)

// ParseMode validates a consist member mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeForward, ModeReverse, ModeIdle, ModeDisabled:
		return Mode(s), nil
	default:
		return "", ErrInvalidMode
	}
}

// Consist groups vehicles that move as one train.
type Consist struct {
	ID      string
	Address int
	Speed   int
}

// clampName truncates ids and names to MaxNameLength.
func clampName(s string) string {
	if len(s) > MaxNameLength {
		return s[:MaxNameLength]
	}
	return s
}

// clampSpeed bounds a requested speed to the registry range.
func clampSpeed(speed int) int {
	if speed > MaxSpeed {
		return MaxSpeed
	}
	if speed < -MaxSpeed {
		return -MaxSpeed
	}
	return speed
}
