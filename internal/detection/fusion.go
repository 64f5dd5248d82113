package detection

import (
	"image"
	"sort"
)

// Fused is one final defect region: a deduplicated candidate plus the
// defect type resolved from its contributing sources and the number of
// detectors that agreed on it.
type Fused struct {
	// Box is the bounding box in canonical image coordinates.
	Box image.Rectangle

	// Type is the resolved defect classification.
	Type DefectType

	// Confidence is the final score in [0,1].
	Confidence float64

	// Support is how many candidates were merged into this detection;
	// 1 means a single detector proposed it.
	Support int

	// Sources lists the distinct detectors that contributed, in priority
	// order.
	Sources []Source

	// Label carries the learned model's class name when a learned
	// candidate contributed, empty otherwise.
	Label string
}

// Result is the ordered outcome of one fusion pass.
//
// Detections are ranked by confidence, descending — the report generator
// depends on most-likely findings coming first. The set is non-overlapping:
// no two boxes exceed the fusion IoU threshold. Immutable after creation.
type Result struct {
	Detections []Fused
}

// Fuser merges candidates from all detectors into a Result.
type Fuser struct {
	// IoU is the overlap threshold above which two candidates describe
	// the same defect.
	IoU float64

	// SupportBoost scales the confidence lift a surviving detection gets
	// from each candidate merged into it.
	SupportBoost float64
}

// NewFuser returns a Fuser with the documented defaults.
func NewFuser() *Fuser {
	return &Fuser{IoU: 0.3, SupportBoost: 0.3}
}

// Fuse pools candidates across sources and reduces them to the final
// non-overlapping, confidence-ranked detection set.
//
// Greedy non-maximum suppression: candidates are ordered by confidence
// (ties broken by larger box area, then source priority crack >
// irregularity > learned, for determinism), the best remaining candidate
// seeds a detection, and every candidate whose IoU with the seed exceeds
// the threshold is merged into it. A merged candidate increments Support,
// boosts the seed's confidence toward 1 and participates in type
// resolution: any crack source makes the type "crack", else any
// irregularity source makes it "irregularity", else the detection is
// learned-only and stays "unclassified".
//
// Zero candidates produce an empty valid Result; fusion never fails.
func (f *Fuser) Fuse(candidates []Candidate) *Result {
	pool := make([]Candidate, len(candidates))
	copy(pool, candidates)

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Confidence != pool[j].Confidence {
			return pool[i].Confidence > pool[j].Confidence
		}
		areaI := pool[i].Box.Dx() * pool[i].Box.Dy()
		areaJ := pool[j].Box.Dx() * pool[j].Box.Dy()
		if areaI != areaJ {
			return areaI > areaJ
		}
		return pool[i].Source.priority() > pool[j].Source.priority()
	})

	taken := make([]bool, len(pool))
	detections := make([]Fused, 0, len(pool))

	for i := range pool {
		if taken[i] {
			continue
		}
		taken[i] = true
		seed := pool[i]

		fused := Fused{
			Box:        seed.Box,
			Confidence: seed.Confidence,
			Support:    1,
			Sources:    []Source{seed.Source},
			Label:      seed.Label,
		}

		for j := i + 1; j < len(pool); j++ {
			if taken[j] {
				continue
			}
			if IoU(seed.Box, pool[j].Box) <= f.IoU {
				continue
			}
			taken[j] = true

			// Favor the higher-confidence member: the seed keeps its
			// score and each agreeing candidate lifts it toward 1.
			fused.Confidence = clip01(fused.Confidence +
				(1-fused.Confidence)*f.SupportBoost*pool[j].Confidence)
			fused.Support++
			fused.Sources = appendSource(fused.Sources, pool[j].Source)
			if fused.Label == "" {
				fused.Label = pool[j].Label
			}
		}

		fused.Type = resolveType(fused.Sources)
		detections = append(detections, fused)
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	return &Result{Detections: detections}
}

// resolveType maps contributing sources to the final defect type.
func resolveType(sources []Source) DefectType {
	hasIrregularity := false
	for _, s := range sources {
		switch s {
		case SourceCrack:
			return TypeCrack
		case SourceIrregularity:
			hasIrregularity = true
		}
	}
	if hasIrregularity {
		return TypeIrregularity
	}
	return TypeUnclassified
}

// appendSource adds a source keeping the list deduplicated and in priority
// order.
func appendSource(sources []Source, s Source) []Source {
	for _, existing := range sources {
		if existing == s {
			return sources
		}
	}
	sources = append(sources, s)
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].priority() > sources[j].priority()
	})
	return sources
}
