// Package dashboard は候補者アーカイブの検索・並び替え・集計を提供する。
package dashboard

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/hitoshi/interviewer/internal/model"
)

// SortField は並び替えの対象フィールド。
type SortField string

const (
	SortByName          SortField = "name"
	SortByFinalScore    SortField = "finalScore"
	SortByInterviewDate SortField = "interviewDate"
)

// SortOrder は並び替えの方向。
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Query は一覧取得の条件。空のフィールドはデフォルト値（finalScoreの降順）を使う。
type Query struct {
	Search string
	Sort   SortField
	Order  SortOrder
}

// Stats はダッシュボード上部に表示する集計値。
type Stats struct {
	TotalInterviews int     `json:"totalInterviews"`
	AverageScore    float64 `json:"averageScore"`
	PendingReviews  int     `json:"pendingReviews"`
}

// ParseQuery はクエリパラメータの値からQueryを組み立てる。
// 未知のsort/orderの場合は INVALID_SORT を返す。
func ParseQuery(search, sort, order string) (Query, error) {
	q := Query{
		Search: strings.TrimSpace(search),
		Sort:   SortByFinalScore,
		Order:  OrderDesc,
	}
	switch SortField(sort) {
	case "":
	case SortByName, SortByFinalScore, SortByInterviewDate:
		q.Sort = SortField(sort)
	default:
		return Query{}, model.NewInvalidSortError(sort)
	}
	switch SortOrder(order) {
	case "":
	case OrderAsc, OrderDesc:
		q.Order = SortOrder(order)
	default:
		return Query{}, model.NewInvalidSortError(order)
	}
	return q, nil
}

// Apply は検索語で絞り込み、指定の順に並べた新しいスライスを返す。入力は変更しない。
// 検索は氏名とAIサマリーに対する大文字小文字を区別しない部分一致。
func Apply(candidates []model.Candidate, q Query) []model.Candidate {
	needle := strings.ToLower(q.Search)
	result := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.AISummary), needle) {
			continue
		}
		result = append(result, c)
	}

	slices.SortStableFunc(result, func(a, b model.Candidate) int {
		cmp := compare(a, b, q.Sort)
		if q.Order == OrderDesc {
			return -cmp
		}
		return cmp
	})
	return result
}

func compare(a, b model.Candidate, field SortField) int {
	switch field {
	case SortByName:
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	case SortByInterviewDate:
		return compareTime(a.InterviewDate, b.InterviewDate)
	default:
		return a.FinalScore - b.FinalScore
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// ComputeStats は集計値を返す。平均スコアはcompletedのレコードのみで計算し、小数第1位に丸める。
func ComputeStats(candidates []model.Candidate) Stats {
	var (
		stats     Stats
		completed int
		total     int
	)
	stats.TotalInterviews = len(candidates)
	for _, c := range candidates {
		if c.Status != model.CandidateStatusCompleted {
			stats.PendingReviews++
			continue
		}
		completed++
		total += c.FinalScore
	}
	if completed > 0 {
		stats.AverageScore = math.Round(float64(total)/float64(completed)*10) / 10
	}
	return stats
}

// Find はIDが一致する候補者を返す。見つからない場合はnilを返す。
func Find(candidates []model.Candidate, id string) *model.Candidate {
	for i := range candidates {
		if candidates[i].ID == id {
			c := candidates[i].Clone()
			return &c
		}
	}
	return nil
}
