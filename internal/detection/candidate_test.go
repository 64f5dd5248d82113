package detection

import (
	"image"
	"math"
	"testing"
)

func TestIoU_Identical(t *testing.T) {
	box := image.Rect(10, 10, 50, 50)
	if got := IoU(box, box); got != 1.0 {
		t.Errorf("IoU of identical boxes = %f, want 1.0", got)
	}
}

func TestIoU_Disjoint(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	b := image.Rect(20, 20, 30, 30)
	if got := IoU(a, b); got != 0 {
		t.Errorf("IoU of disjoint boxes = %f, want 0", got)
	}
}

func TestIoU_PartialOverlap(t *testing.T) {
	// Intersection 50x100, union 150x100.
	a := image.Rect(0, 0, 100, 100)
	b := image.Rect(50, 0, 150, 100)
	want := 5000.0 / 15000.0
	if got := IoU(a, b); math.Abs(got-want) > 1e-9 {
		t.Errorf("IoU = %f, want %f", got, want)
	}
}

func TestIoU_EmptyBox(t *testing.T) {
	a := image.Rect(0, 0, 0, 0)
	b := image.Rect(0, 0, 10, 10)
	if got := IoU(a, b); got != 0 {
		t.Errorf("IoU with empty box = %f, want 0", got)
	}
}

func TestSourcePriority(t *testing.T) {
	if SourceCrack.priority() <= SourceIrregularity.priority() {
		t.Error("crack should outrank irregularity")
	}
	if SourceIrregularity.priority() <= SourceLearned.priority() {
		t.Error("irregularity should outrank learned")
	}
}
