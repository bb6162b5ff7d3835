package pesticide

import "fmt"

// Info is the static fact sheet shown next to a prediction.
type Info struct {
	Description  string `json:"description" yaml:"description"`
	ModeOfAction string `json:"mode_of_action" yaml:"mode_of_action"`
	Examples     string `json:"examples" yaml:"examples"`
	Application  string `json:"application" yaml:"application"`
}

// Entry pairs a label with its fact sheet.
type Entry struct {
	Label ClassLabel `json:"label" yaml:"label"`
	Info  `yaml:",inline"`
}

var facts = map[ClassLabel]Info{
	Insecticide: {
		Description:  "Used to kill or repel insects that damage crops.",
		ModeOfAction: "Targets insect nervous system or development.",
		Examples:     "Malathion, Imidacloprid, Pyrethroids",
		Application:  "Applied to leaves, soil, or as systemic treatments.",
	},
	Fungicide: {
		Description:  "Used to prevent or eliminate fungal diseases in plants.",
		ModeOfAction: "Disrupts fungal cell walls or reproduction.",
		Examples:     "Mancozeb, Copper sulfate, Azoxystrobin",
		Application:  "Sprayed on foliage or seed-treated.",
	},
	Herbicide: {
		Description:  "Used to control or kill unwanted weeds and plants.",
		ModeOfAction: "Inhibits photosynthesis or amino acid production.",
		Examples:     "Glyphosate, Atrazine, Paraquat",
		Application:  "Sprayed before or after crop emergence.",
	},
	Bactericide: {
		Description:  "Used to control bacterial infections in plants.",
		ModeOfAction: "Disrupts bacterial cell membranes or replication.",
		Examples:     "Copper compounds, Streptomycin",
		Application:  "Foliar sprays or seed treatments.",
	},
	Rodenticide: {
		Description:  "Used to control rodents like rats and mice.",
		ModeOfAction: "Anticoagulants or neurological poisons.",
		Examples:     "Brodifacoum, Zinc phosphide",
		Application:  "Pellets, baits placed in fields or storage.",
	},
	Nematicide: {
		Description:  "Used to eliminate nematodes (microscopic worms) in soil.",
		ModeOfAction: "Neurotoxins or enzyme inhibitors.",
		Examples:     "Aldicarb, Fluensulfone",
		Application:  "Soil fumigation or drenches.",
	},
	Miticide: {
		Description:  "Used to control mites and ticks affecting crops.",
		ModeOfAction: "Inhibits respiration or nervous system.",
		Examples:     "Abamectin, Bifenazate",
		Application:  "Foliar sprays or greenhouse misting.",
	},
}

// Lookup returns the fact sheet for a label.
func Lookup(l ClassLabel) (Info, error) {
	info, ok := facts[l]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownLabel, string(l))
	}
	return info, nil
}

// Catalog returns every fact sheet in label order.
func Catalog() []Entry {
	out := make([]Entry, 0, len(labels))
	for _, l := range labels {
		out = append(out, Entry{Label: l, Info: facts[l]})
	}
	return out
}

// Complete reports whether all four fields are populated.
func (i Info) Complete() bool {
	return i.Description != "" && i.ModeOfAction != "" && i.Examples != "" && i.Application != ""
}
