package dcc

// Baseline instruction bases.
const (
	// MoveBase is the speed-and-direction instruction base (01DCSSSS).
	MoveBase byte = 0x40

	// DirectionBit marks forward movement in a speed instruction.
	DirectionBit byte = 0x20

	// EmergencyBit turns a stop instruction into an emergency stop.
	EmergencyBit byte = 0x01

	// FunctionGroup1Base covers F1-F4 plus the headlight (100DFFFF).
	FunctionGroup1Base byte = 0x80

	// FunctionGroup2Base covers F5-F8 (1011FFFF).
	FunctionGroup2Base byte = 0xb0

	// FunctionGroup3Base covers F9-F12 (1010FFFF).
	FunctionGroup3Base byte = 0xa0

	// HeadlightBit is the FL bit inside a group-1 instruction.
	HeadlightBit byte = 0x10

	// AccessoryBase is the high bit both accessory packet bytes carry.
	AccessoryBase byte = 0x80
)

// HeadlightIndex is the function index reserved for the headlight (FL).
// F1-F12 use their own index; 13 selects the FL bit of function group 1.
const HeadlightIndex = 13

// HeadlightMask is the function-mask bit tracking the headlight state.
const HeadlightMask uint16 = 0x1000

// MaxSpeedStep is the highest speed magnitude the 28-step instruction
// encodes. Callers may track larger values; they cannot be sent.
const MaxSpeedStep = 28

// MaxAccessoryAddress is the highest addressable basic accessory decoder.
const MaxAccessoryAddress = 511

// speedCodes maps speed steps 0..28 to their 5-bit CSSSS wire codes.
// In 28-step mode the intermediate-step bit C is bit 4, so consecutive
// steps alternate between the low and high half of the code space and
// the raw byte values are not monotonic. The inverse mapping below is
// the authority on correctness.
var speedCodes = [MaxSpeedStep + 1]byte{
	0x00, 0x02, 0x12, 0x03, 0x13, 0x04, 0x14, 0x05, 0x15, 0x06, 0x16,
	0x07, 0x17, 0x08, 0x18, 0x09, 0x19, 0x0a, 0x1a, 0x0b, 0x1b,
	0x0c, 0x1c, 0x0d, 0x1d, 0x0e, 0x1e, 0x0f, 0x1f,
}

// SpeedStep inverts a 5-bit CSSSS code back to its speed step.
//
// Returns false for the codes that do not name a step (0x01, 0x10 and
// 0x11 are reserved stop/halt codes in 28-step mode).
func SpeedStep(code byte) (int, bool) {
	for step, c := range speedCodes {
		if c == code&0x1f {
			return step, true
		}
	}
	return 0, false
}

// Move encodes a signed speed into a speed-and-direction instruction.
//
// Positive speeds run forward, negative reverse, zero is a normal stop.
// The magnitude must not exceed MaxSpeedStep.
func Move(speed int) (byte, error) {
	magnitude := speed
	direction := byte(0)
	if speed > 0 {
		direction = DirectionBit
	} else {
		magnitude = -speed
	}
	if magnitude > MaxSpeedStep {
		return 0, ErrSpeedRange
	}
	return MoveBase | direction | speedCodes[magnitude], nil
}

// Stop encodes a stop instruction, emergency or normal.
//
// A stop addressed to 0 halts every decoder on the track; the byte
// itself is the same either way.
func Stop(emergency bool) byte {
	if emergency {
		return MoveBase | EmergencyBit
	}
	return MoveBase
}

// Function encodes the grouped function instruction that carries the
// state of the function at the given index.
//
// The full mask is passed because each instruction transmits its whole
// group: changing F2 resends F1-F4 and the headlight as well.
//
//	index 1-4, 13:  group 1, 0x80 | FL | F4 F3 F2 F1
//	index 5-8:      group 2, 0xb0 | F8 F7 F6 F5
//	index 9-12:     group 3, 0xa0 | F12 F11 F10 F9
func Function(mask uint16, index int) (byte, error) {
	switch {
	case (index >= 1 && index <= 4) || index == HeadlightIndex:
		instruction := FunctionGroup1Base | byte(mask&0x0f)
		if mask&HeadlightMask != 0 {
			instruction |= HeadlightBit
		}
		return instruction, nil
	case index >= 5 && index <= 8:
		return FunctionGroup2Base | byte((mask>>4)&0x0f), nil
	case index >= 9 && index <= 12:
		return FunctionGroup3Base | byte((mask>>8)&0x0f), nil
	default:
		return 0, ErrFunctionIndex
	}
}

// Accessory encodes a basic accessory packet as its two wire bytes.
//
// The 9-bit accessory address splits across both bytes:
//
//	address byte:     10AAAAAA            (low 6 address bits)
//	instruction byte: 1aaaCDDD | activate (bits 6-8, ones-complemented)
//
// device selects one of the decoder's outputs and active drives the
// 0x08 activation bit.
func Accessory(address, device int, active bool) (byte, byte, error) {
	if address < 0 || address > MaxAccessoryAddress {
		return 0, 0, ErrAccessoryRange
	}

	addressByte := AccessoryBase | byte(address&0x3f)

	high := byte(^(address>>6)&0x07) << 4
	instruction := AccessoryBase | high | byte(device&0x0f)
	if active {
		instruction |= 0x08
	}
	return addressByte, instruction, nil
}
