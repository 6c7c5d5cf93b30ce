package scan

// verifyLattice rejects hotbar detections whose positions disagree with the
// regular lattice implied by the rest: real hotbar icons sit on a uniform
// pitch, so a detection far off that pitch is almost always a false positive
// on background texture. Equipment detections live in a separate layout and
// pass through untouched.
func (s *Session) verifyLattice(dets []Detection) []Detection {
	var hotbar, equip []Detection
	for _, d := range dets {
		if d.Method == MethodEquipmentScan {
			equip = append(equip, d)
		} else {
			hotbar = append(hotbar, d)
		}
	}
	// With fewer than three lattice members there is no pitch to disagree
	// with.
	if len(hotbar) < 3 {
		return dets
	}

	pitch := dominantSize(hotbar)
	if pitch <= 0 {
		return dets
	}

	// The most confident detection anchors the lattice. Suppress returns
	// detections in descending confidence order, so that is hotbar[0].
	anchor := hotbar[0].Position

	kept := make([]Detection, 0, len(dets))
	for _, d := range hotbar {
		rx := latticeResidual(d.Position.X-anchor.X, pitch)
		ry := latticeResidual(d.Position.Y-anchor.Y, pitch)
		if rx > s.cfg.VerifyResidual || ry > s.cfg.VerifyResidual {
			continue
		}
		kept = append(kept, d)
	}
	return append(kept, equip...)
}

// dominantSize is the most common detection width. Ties keep the value that
// reached the winning count first, so the result is deterministic.
func dominantSize(dets []Detection) int {
	counts := make(map[int]int, len(dets))
	best, bestN := 0, 0
	for _, d := range dets {
		w := d.Position.Width
		counts[w]++
		if counts[w] > bestN {
			best, bestN = w, counts[w]
		}
	}
	return best
}

// latticeResidual is the normalized distance from offset to the nearest
// multiple of pitch, in [0, 0.5].
func latticeResidual(offset, pitch int) float64 {
	if pitch <= 0 {
		return 0
	}
	m := ((offset % pitch) + pitch) % pitch
	return float64(min(m, pitch-m)) / float64(pitch)
}
