// Package interview は質問の出題とスコアリングの進行を制御する。
//
// Runtimeはクライアント1つ分の面接を進める。質問番号から難易度と制限時間を決め、
// 質問生成・採点の外部呼び出しを行い、その結果をsession.Storeに反映する。
// 外部呼び出しの間はロックを保持せず、loadingフラグで二重送信を防ぐ。
package interview

import "github.com/hitoshi/interviewer/internal/model"

// 難易度ごとの回答制限時間（秒）。
const (
	TimeLimitEasy   = 20
	TimeLimitMedium = 60
	TimeLimitHard   = 120
)

// DifficultyFor は質問番号（1始まり）に対応する難易度を返す。
// 1〜2問目はEasy、3〜4問目はMedium、5問目以降はHard。
func DifficultyFor(questionNumber int) model.Difficulty {
	switch {
	case questionNumber > 4:
		return model.DifficultyHard
	case questionNumber > 2:
		return model.DifficultyMedium
	default:
		return model.DifficultyEasy
	}
}

// TimeLimitFor は難易度に対応する制限時間（秒）を返す。
func TimeLimitFor(d model.Difficulty) int {
	switch d {
	case model.DifficultyHard:
		return TimeLimitHard
	case model.DifficultyMedium:
		return TimeLimitMedium
	default:
		return TimeLimitEasy
	}
}
