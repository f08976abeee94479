package detection

import (
	"sort"
	"strings"
)

// classCategories maps the COCO detection labels to their coarse categories,
// plus the package and face labels emitted by newer detection pipelines.
var classCategories = map[string]string{
	"person":         "person",
	"bicycle":        "vehicle",
	"car":            "vehicle",
	"motorcycle":     "vehicle",
	"airplane":       "vehicle",
	"bus":            "vehicle",
	"train":          "vehicle",
	"truck":          "vehicle",
	"boat":           "vehicle",
	"traffic light":  "outdoor",
	"fire hydrant":   "outdoor",
	"stop sign":      "outdoor",
	"parking meter":  "outdoor",
	"bench":          "outdoor",
	"bird":           "animal",
	"cat":            "animal",
	"dog":            "animal",
	"horse":          "animal",
	"sheep":          "animal",
	"cow":            "animal",
	"elephant":       "animal",
	"bear":           "animal",
	"zebra":          "animal",
	"giraffe":        "animal",
	"backpack":       "accessory",
	"umbrella":       "accessory",
	"handbag":        "accessory",
	"tie":            "accessory",
	"suitcase":       "accessory",
	"frisbee":        "sports",
	"skis":           "sports",
	"snowboard":      "sports",
	"sports ball":    "sports",
	"kite":           "sports",
	"baseball bat":   "sports",
	"baseball glove": "sports",
	"skateboard":     "sports",
	"surfboard":      "sports",
	"tennis racket":  "sports",
	"bottle":         "kitchen",
	"wine glass":     "kitchen",
	"cup":            "kitchen",
	"fork":           "kitchen",
	"knife":          "kitchen",
	"spoon":          "kitchen",
	"bowl":           "kitchen",
	"banana":         "food",
	"apple":          "food",
	"sandwich":       "food",
	"orange":         "food",
	"broccoli":       "food",
	"carrot":         "food",
	"hot dog":        "food",
	"pizza":          "food",
	"donut":          "food",
	"cake":           "food",
	"chair":          "furniture",
	"couch":          "furniture",
	"potted plant":   "furniture",
	"bed":            "furniture",
	"dining table":   "furniture",
	"toilet":         "furniture",
	"tv":             "electronic",
	"laptop":         "electronic",
	"mouse":          "electronic",
	"remote":         "electronic",
	"keyboard":       "electronic",
	"cell phone":     "electronic",
	"microwave":      "appliance",
	"oven":           "appliance",
	"toaster":        "appliance",
	"sink":           "appliance",
	"refrigerator":   "appliance",
	"book":           "indoor",
	"clock":          "indoor",
	"vase":           "indoor",
	"scissors":       "indoor",
	"teddy bear":     "indoor",
	"hair drier":     "indoor",
	"toothbrush":     "indoor",
	"package":        "package",
	"face":           "face",
}

// Labels returns every known detection label, sorted.
func Labels() []string {
	out := make([]string, 0, len(classCategories))
	for l := range classCategories {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Categories returns every known category, sorted.
func Categories() []string {
	seen := map[string]struct{}{}
	for _, c := range classCategories {
		seen[c] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// LabelMatchesCategory reports whether a detection label belongs to the
// given class, where class may be either a label or a category. Matching is
// case-insensitive. Faces additionally match the person category since face
// pipelines run downstream of person detection.
func LabelMatchesCategory(label, class string) bool {
	label = strings.ToLower(label)
	class = strings.ToLower(class)
	if class == "" {
		return false
	}
	if label == class {
		return true
	}
	if label == "face" && class == "person" {
		return true
	}
	return classCategories[label] == class
}
