package lexicon

// DefaultQueryHints returns the extra search phrases appended when a user term matches.
// Keys are raw; New normalizes them.
func DefaultQueryHints() map[string][]string {
	return map[string][]string{
		"tarifs": {
			"Synthese tarif 2024 2025",
			"tarifs centre de loisirs",
			"grille tarifaire amiens",
		},
		"centre de loisirs": {
			"Synthese tarif 2024 2025",
			"tarifs accueil de loisirs",
		},
		"inscription": {
			"inscriptions scolaires",
			"inscription scolaire",
			"mairie de secteur",
			"pièces justificatives",
		},
		"inscrire": {
			"inscriptions scolaires",
			"mairie de secteur",
			"pièces justificatives",
		},
		"s inscrire": {
			"inscriptions scolaires",
			"mairie de secteur",
			"pièces justificatives",
		},
		"inscription scolaire": {
			"inscriptions scolaires",
			"mairie de secteur",
			"pièces justificatives",
		},
		"documents": {
			"pièces justificatives",
			"dossier inscription",
		},
		"justificatif": {
			"pièces justificatives",
			"dossier inscription",
		},
		"périscolaire": {
			"accueil périscolaire",
			"inscription périscolaire",
		},
	}
}
