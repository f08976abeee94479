package detection

// Filter defines a function that filters/modifies an incoming array of
// detections before zone matching.
type Filter func([]Detection) []Detection

// NewScoreFilter returns a function that filters out detections below a
// certain confidence. Unscored detections (score zero) always pass so that
// pipelines without confidence reporting are unaffected.
func NewScoreFilter(conf float64) Filter {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Score == 0 || d.Score >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewClassFilter returns a function that keeps only detections whose label
// matches one of the given classes, where each class may be a label or a
// category. An empty class list keeps everything.
func NewClassFilter(classes []string) Filter {
	return func(in []Detection) []Detection {
		if len(classes) == 0 {
			return in
		}
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			for _, c := range classes {
				if LabelMatchesCategory(d.Label, c) {
					out = append(out, d)
					break
				}
			}
		}
		return out
	}
}
