package tumor

import (
	"context"
	"testing"

	"gocv.io/x/gocv"

	"github.com/aforsythe/HughesLabTools/internal/channel"
	"github.com/aforsythe/HughesLabTools/internal/config"
	"github.com/aforsythe/HughesLabTools/internal/logger"
	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

func newTumorChannel(t *testing.T) *channel.Channel {
	t.Helper()

	src, err := substrate.NewMat(16, 16, gocv.MatTypeCV8UC1)
	if err != nil {
		t.Fatalf("NewMat: %v", err)
	}
	return channel.New("Tumor", "Green", channel.Tumor, src)
}

func TestMeasureNoopsWithoutTumorMetrics(t *testing.T) {
	ch := newTumorChannel(t)
	defer ch.Close()

	// Only the vessel metric is selected; a tumor channel with no mask must
	// pass through untouched rather than fail.
	opts := config.Default()
	opts.MeasureDiameter = true

	s := New(logger.NewNop())
	if err := s.Measure(context.Background(), ch, opts); err != nil {
		t.Fatalf("Measure with no tumor metric selected: %v", err)
	}
	if len(ch.Measurements()) != 0 {
		t.Errorf("unexpected measurements recorded: %v", ch.Measurements())
	}
}

func TestMeasureRequiresMaskWhenMetricSelected(t *testing.T) {
	ch := newTumorChannel(t)
	defer ch.Close()

	opts := config.Default()
	opts.MeasureGrey = true

	s := New(logger.NewNop())
	if err := s.Measure(context.Background(), ch, opts); err == nil {
		t.Fatal("grey level without a mask must fail")
	}
}
