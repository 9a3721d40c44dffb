package analyze

// ChangeCounts splits one valence's changes by kind.
type ChangeCounts struct {
	Added   int // no old description
	Changed int
	Dropped int // no new description
}

// ValenceCounts holds ChangeCounts for every valence.
type ValenceCounts map[Valence]ChangeCounts

// TallyValence counts added, changed and dropped rules per valence.
func TallyValence(rows []Row) ValenceCounts {
	counts := make(ValenceCounts, len(Valences))
	for _, v := range Valences {
		counts[v] = ChangeCounts{}
	}

	for _, r := range rows {
		c := counts[r.Valence]
		switch {
		case r.OldDescription == "":
			c.Added++
		case r.NewDescription == "":
			c.Dropped++
		default:
			c.Changed++
		}
		counts[r.Valence] = c
	}
	return counts
}
