package projection

import "sort"

// CandidateStanding is one candidate's share of simulated wins.
type CandidateStanding struct {
	Entity         string  `json:"entity"`
	WinProbability float64 `json:"win_probability"`
	Estimate       float64 `json:"estimate"`
}

// Rank computes each candidate's win probability: the fraction of
// iterations in which it holds the maximum share, with ties splitting
// the win credit equally among the tied candidates of that iteration.
//
// The returned winner has the highest win probability; ties break by
// higher point estimate, then lexical id. Probabilities sum to 1.
func Rank(ens *Ensemble) ([]CandidateStanding, string) {
	entities := ens.Entities()
	n := ens.Iterations()
	if len(entities) == 0 || n == 0 {
		return nil, ""
	}

	wins := make([]float64, len(entities))
	estimates := make([]float64, len(entities))
	tied := make([]int, 0, len(entities))

	for i := 0; i < n; i++ {
		row := ens.Row(i)
		max := row[0]
		tied = tied[:0]
		tied = append(tied, 0)
		for j := 1; j < len(row); j++ {
			switch {
			case row[j] > max:
				max = row[j]
				tied = tied[:0]
				tied = append(tied, j)
			case row[j] == max:
				tied = append(tied, j)
			}
		}

		credit := 1 / float64(len(tied))
		for _, j := range tied {
			wins[j] += credit
		}
		for j, v := range row {
			estimates[j] += v
		}
	}

	standings := make([]CandidateStanding, len(entities))
	for j, entity := range entities {
		standings[j] = CandidateStanding{
			Entity:         entity,
			WinProbability: wins[j] / float64(n),
			Estimate:       estimates[j] / float64(n),
		}
	}

	sort.SliceStable(standings, func(a, b int) bool {
		if standings[a].WinProbability != standings[b].WinProbability {
			return standings[a].WinProbability > standings[b].WinProbability
		}
		if standings[a].Estimate != standings[b].Estimate {
			return standings[a].Estimate > standings[b].Estimate
		}
		return standings[a].Entity < standings[b].Entity
	})

	return standings, standings[0].Entity
}
