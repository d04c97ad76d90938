package fleet

import (
	"errors"
	"testing"
)

// buildTrain sets up two locomotives coupled back to back, one idle
// car with a decoder, and one disabled member.
func buildTrain(t *testing.T) (*Registry, *recordingCommander) {
	t.Helper()
	registry, commander := newTestRegistry(t)

	for _, v := range []struct {
		id      string
		address int
		mode    Mode
	}{
		{"lead", 10, ModeForward},
		{"trail", 11, ModeReverse},
		{"diner", 12, ModeIdle},
		{"spare", 13, ModeDisabled},
	} {
		if err := registry.AddVehicle(v.id, "", v.address); err != nil {
			t.Fatalf("AddVehicle(%s) error: %v", v.id, err)
		}
	}
	if err := registry.DeclareConsist("train", 100); err != nil {
		t.Fatalf("DeclareConsist error: %v", err)
	}
	for _, v := range []struct {
		id   string
		mode Mode
	}{
		{"lead", ModeForward}, {"trail", ModeReverse}, {"diner", ModeIdle}, {"spare", ModeDisabled},
	} {
		if err := registry.Assign("train", v.id, v.mode); err != nil {
			t.Fatalf("Assign(%s) error: %v", v.id, err)
		}
	}
	commander.commands = nil
	return registry, commander
}

func TestDeclareConsistValidation(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if err := registry.DeclareConsist("", 10); !errors.Is(err, ErrInvalidID) {
		t.Errorf("empty id error = %v, want ErrInvalidID", err)
	}
	if err := registry.DeclareConsist("c", 0); !errors.Is(err, ErrAddressRange) {
		t.Errorf("address 0 error = %v, want ErrAddressRange", err)
	}
	if err := registry.DeclareConsist("c", 128); !errors.Is(err, ErrAddressRange) {
		t.Errorf("address 128 error = %v, want ErrAddressRange", err)
	}

	if err := registry.DeclareConsist("c", 100); err != nil {
		t.Fatalf("DeclareConsist error: %v", err)
	}
	if err := registry.DeclareConsist("other", 100); !errors.Is(err, ErrAddressInUse) {
		t.Errorf("duplicate address error = %v, want ErrAddressInUse", err)
	}
}

func TestAssignValidation(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if err := registry.AddVehicle("v", "", 1); err != nil {
		t.Fatalf("AddVehicle error: %v", err)
	}
	if err := registry.DeclareConsist("c", 100); err != nil {
		t.Fatalf("DeclareConsist error: %v", err)
	}

	if err := registry.Assign("c", "v", "x"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("bad mode error = %v, want ErrInvalidMode", err)
	}
	if err := registry.Assign("ghost", "v", ModeForward); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown consist error = %v, want ErrNotFound", err)
	}
	if err := registry.Assign("c", "ghost", ModeForward); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown vehicle error = %v, want ErrNotFound", err)
	}
	if err := registry.Assign("c", "v", ModeForward); err != nil {
		t.Errorf("valid assign error: %v", err)
	}
}

func TestConsistMove(t *testing.T) {
	registry, commander := buildTrain(t)

	if err := registry.Move("train", 14); err != nil {
		t.Fatalf("Move(train) error: %v", err)
	}

	want := map[string]bool{"move 10 14": true, "move 11 -14": true}
	if len(commander.commands) != len(want) {
		t.Fatalf("commands = %v, want exactly %d traction moves", commander.commands, len(want))
	}
	for _, command := range commander.commands {
		if !want[command] {
			t.Errorf("unexpected command %q", command)
		}
	}

	lead, _ := registry.Find("lead")
	trail, _ := registry.Find("trail")
	diner, _ := registry.Find("diner")
	if lead.Speed != 14 || trail.Speed != -14 || diner.Speed != 0 {
		t.Errorf("member speeds = %d/%d/%d, want 14/-14/0", lead.Speed, trail.Speed, diner.Speed)
	}
}

func TestConsistStop(t *testing.T) {
	registry, commander := buildTrain(t)

	if err := registry.Move("train", 10); err != nil {
		t.Fatalf("Move(train) error: %v", err)
	}
	commander.commands = nil

	if err := registry.Stop("train", true); err != nil {
		t.Fatalf("Stop(train) error: %v", err)
	}

	// Everyone but the disabled member is stopped.
	want := map[string]bool{"stop 10 true": true, "stop 11 true": true, "stop 12 true": true}
	if len(commander.commands) != len(want) {
		t.Fatalf("commands = %v, want %d stops", commander.commands, len(want))
	}
	for _, command := range commander.commands {
		if !want[command] {
			t.Errorf("unexpected command %q", command)
		}
	}
}

func TestConsistRemove(t *testing.T) {
	registry, commander := buildTrain(t)

	if err := registry.Remove("trail"); err != nil {
		t.Fatalf("Remove(trail) error: %v", err)
	}
	if err := registry.Remove("trail"); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("second remove error = %v, want ErrNotAssigned", err)
	}

	commander.commands = nil
	if err := registry.Move("train", 8); err != nil {
		t.Fatalf("Move(train) error: %v", err)
	}
	if len(commander.commands) != 1 || commander.commands[0] != "move 10 8" {
		t.Errorf("commands = %v, want only lead to move", commander.commands)
	}
}

func TestConsistDeleteReleasesMembers(t *testing.T) {
	registry, _ := buildTrain(t)

	if err := registry.Delete("train"); err != nil {
		t.Fatalf("Delete(train) error: %v", err)
	}

	lead, ok := registry.Find("lead")
	if !ok {
		t.Fatal("lead vanished with its consist")
	}
	if lead.Consist != "" || lead.Mode != "" {
		t.Errorf("lead still assigned: %q/%q", lead.Consist, lead.Mode)
	}
	if err := registry.Move("train", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("Move on deleted consist error = %v, want ErrNotFound", err)
	}
}

func TestConsistStatus(t *testing.T) {
	registry, _ := buildTrain(t)

	status := registry.Status()
	if len(status.Consists) != 1 {
		t.Fatalf("len(Consists) = %d, want 1", len(status.Consists))
	}
	consist := status.Consists[0]
	if consist.ID != "train" || consist.Address != 100 {
		t.Errorf("consist = %+v, want train at 100", consist)
	}
	if len(consist.Members) != 4 {
		t.Errorf("members = %v, want 4", consist.Members)
	}
}
