package app

import (
	"context"
	"sort"

	"notiplay/internal/domain"
)

// Leaderboard splits the ranking into the podium and the rest.
type Leaderboard struct {
	// Podium is in display order: second, first, third.
	Podium []domain.RankedUser `json:"podium"`
	List   []domain.RankedUser `json:"list"`
}

type LeaderboardService struct {
	ranking RankingRepository
}

func NewLeaderboardService(ranking RankingRepository) *LeaderboardService {
	return &LeaderboardService{ranking: ranking}
}

func (s *LeaderboardService) Leaderboard(ctx context.Context) (Leaderboard, error) {
	rows, err := s.ranking.Ranking(ctx)
	if err != nil {
		return Leaderboard{}, err
	}
	return buildLeaderboard(rows), nil
}

func buildLeaderboard(rows []domain.RankedUser) Leaderboard {
	lb := Leaderboard{Podium: []domain.RankedUser{}, List: []domain.RankedUser{}}
	byRank := map[int]domain.RankedUser{}
	for _, row := range rows {
		tier := row.Tier
		if tier == "" {
			tier = domain.TierList
			if row.Rank >= 1 && row.Rank <= 3 {
				tier = domain.TierPodium
			}
			row.Tier = tier
		}
		if tier == domain.TierPodium {
			byRank[row.Rank] = row
		} else {
			lb.List = append(lb.List, row)
		}
	}
	for _, rank := range []int{2, 1, 3} {
		if row, ok := byRank[rank]; ok {
			lb.Podium = append(lb.Podium, row)
		}
	}
	sort.SliceStable(lb.List, func(i, j int) bool {
		return lb.List[i].Rank < lb.List[j].Rank
	})
	return lb
}
