package channel

import (
	"testing"

	"gocv.io/x/gocv"

	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

func newSource(t *testing.T) *substrate.Mat {
	t.Helper()
	mat, err := substrate.NewMat(8, 8, gocv.MatTypeCV8UC1)
	if err != nil {
		t.Fatalf("NewMat: %v", err)
	}
	return mat
}

func TestParseImageType(t *testing.T) {
	tests := []struct {
		name    string
		want    ImageType
		wantErr bool
	}{
		{name: "Tumor", want: Tumor},
		{name: "tumors", want: Tumor},
		{name: "Vessel", want: Vessel},
		{name: "Vessels", want: Vessel},
		{name: " vessels ", want: Vessel},
		{name: "Fibroblasts", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseImageType(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseImageType(%q): expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseImageType(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseImageType(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestRecordRejectsCrossTypeMetrics(t *testing.T) {
	src := newSource(t)
	ch := New("Vessels", "Red", Vessel, src)
	defer ch.Close()

	if err := ch.Record("vesselDiameter1", 9.5); err != nil {
		t.Fatalf("vessel metric rejected on vessel channel: %v", err)
	}
	if err := ch.Record("circularity", 0.9); err == nil {
		t.Error("tumor metric accepted on vessel channel")
	}
	if err := ch.Record("meanGreyLevel", 120); err == nil {
		t.Error("grey-level metric accepted on vessel channel")
	}

	tumorCh := New("Tumor", "Green", Tumor, newSource(t))
	defer tumorCh.Close()

	if err := tumorCh.Record("circularity", 0.8); err != nil {
		t.Fatalf("tumor metric rejected on tumor channel: %v", err)
	}
	if err := tumorCh.Record("vesselDiameter1", 10); err == nil {
		t.Error("vessel metric accepted on tumor channel")
	}
}

func TestRecordIsAppendOnly(t *testing.T) {
	ch := New("Tumor", "Green", Tumor, newSource(t))
	defer ch.Close()

	if err := ch.Record("circularity", 0.7); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := ch.Record("circularity", 0.9); err == nil {
		t.Fatal("duplicate metric name accepted")
	}

	value, ok := ch.Measurement("circularity")
	if !ok || value != 0.7 {
		t.Errorf("circularity = %v (ok=%v), want 0.7", value, ok)
	}
}

func TestMeasurementsPreserveOrder(t *testing.T) {
	ch := New("Vessels", "Red", Vessel, newSource(t))
	defer ch.Close()

	names := []string{"vesselDiameter1", "vesselDiameter2", "vesselDiameter3"}
	for i, name := range names {
		if err := ch.Record(name, float64(i)); err != nil {
			t.Fatalf("Record(%q): %v", name, err)
		}
	}

	measurements := ch.Measurements()
	if len(measurements) != 3 {
		t.Fatalf("got %d measurements, want 3", len(measurements))
	}
	for i, m := range measurements {
		if m.Name != names[i] {
			t.Errorf("measurement %d = %q, want %q", i, m.Name, names[i])
		}
	}
}

func TestReplaceCreatesFreshChannel(t *testing.T) {
	src := newSource(t)
	ch := New("Vessels", "Red", Vessel, src)
	if err := ch.Record("vesselDiameter1", 12); err != nil {
		t.Fatalf("Record: %v", err)
	}

	replacement, err := ch.Replace(Tumor, "Tumor")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	defer replacement.Close()

	if replacement.ID == ch.ID {
		t.Error("replacement kept the old channel id")
	}
	if replacement.Type() != Tumor {
		t.Errorf("replacement type = %s, want tumor", replacement.Type())
	}
	if replacement.Source() != src {
		t.Error("replacement does not carry the original substrate")
	}
	if len(replacement.Measurements()) != 0 {
		t.Error("replacement inherited measurements")
	}
	if ch.Source() != nil {
		t.Error("retired channel still owns the substrate")
	}
}

func TestClearMeasurementsDropsDerivedState(t *testing.T) {
	ch := New("Tumor", "Green", Tumor, newSource(t))
	defer ch.Close()

	ch.SetThreshold(128)
	mask := newSource(t)
	ch.SetMask(mask)
	if err := ch.Record("meanGreyLevel", 99); err != nil {
		t.Fatalf("Record: %v", err)
	}

	ch.ClearMeasurements()

	if ch.Threshold != nil {
		t.Error("threshold survived clear")
	}
	if ch.Mask != nil {
		t.Error("mask survived clear")
	}
	if len(ch.Measurements()) != 0 {
		t.Error("measurements survived clear")
	}
}
