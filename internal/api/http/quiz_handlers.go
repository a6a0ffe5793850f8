package http

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/mind-engage/lawcards/internal/highscore"
	"github.com/mind-engage/lawcards/internal/quiz"
)

const maxQuizCount = 200

type quizItem struct {
	quiz.Item
	TimeLimit      int    `json:"timeLimit"`
	TimeLimitLabel string `json:"timeLimitLabel"`
}

// GET /quiz/{categoryID}?count=&seed=
func QuizHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := urlParam(r, "categoryID")
		cats, _ := categories(r.Context(), d)
		cat, ok := findCategory(cats, id)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown category")
			return
		}
		count := parseIntDefault(r.URL.Query().Get("count"), quiz.DefaultCount)
		if count == 0 || count > maxQuizCount {
			count = quiz.DefaultCount
		}
		var rnd *rand.Rand
		if s, err := strconv.ParseUint(r.URL.Query().Get("seed"), 10, 64); err == nil {
			rnd = rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
		}
		items := quiz.New(d.Markers, rnd).Generate(cat.Questions, count)
		out := make([]quizItem, 0, len(items))
		for _, it := range items {
			limit := quiz.CountdownTime(it.Prompt, quiz.DefaultTimeSettings)
			out = append(out, quizItem{Item: it, TimeLimit: limit, TimeLimitLabel: quiz.FormatTime(float64(limit))})
		}
		writeJSON(w, http.StatusOK, map[string]any{"categoryId": id, "items": out})
	}
}

type answerReq struct {
	ItemID           string  `json:"itemId"`
	Choice           string  `json:"choice"`
	RemainingSeconds float64 `json:"remainingSeconds"`
	TimeLimit        float64 `json:"timeLimit"`
}

type answerResp struct {
	Correct       bool       `json:"correct"`
	CorrectAnswer string     `json:"correctAnswer"`
	Score         quiz.Score `json:"score"`
	TimeLeft      string     `json:"timeLeft"`
}

// POST /quiz/{categoryID}/answer
func ScoreAnswerHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := urlParam(r, "categoryID")
		var req answerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if req.ItemID == "" || !d.Catalog.IsAllowed(id, req.ItemID) {
			writeError(w, http.StatusNotFound, "question not in category")
			return
		}
		correct, ok := quiz.New(d.Markers, nil).Answer(req.ItemID)
		if !ok {
			writeError(w, http.StatusBadRequest, "not a quiz question id")
			return
		}
		isCorrect := req.Choice == correct
		writeJSON(w, http.StatusOK, answerResp{
			Correct:       isCorrect,
			CorrectAnswer: correct,
			Score:         quiz.AnswerScore(isCorrect, req.RemainingSeconds, req.TimeLimit),
			TimeLeft:      quiz.FormatTime(req.RemainingSeconds),
		})
	}
}

type highScoreView struct {
	highscore.HighScore
	Date string `json:"date"`
}

func viewHighScore(hs highscore.HighScore, d Deps) highScoreView {
	return highScoreView{HighScore: hs, Date: hs.AchievedDate(d.Location)}
}

// GET /highscores
func ListHighScoresHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := d.HighScores.All(r.Context())
		out := make(map[string]highScoreView, len(all))
		for id, hs := range all {
			out[id] = viewHighScore(hs, d)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type submitScoreReq struct {
	Score          int     `json:"score"`
	Percentage     float64 `json:"percentage"`
	TotalQuestions int     `json:"totalQuestions"`
}

// POST /highscores/{categoryID}
func SubmitHighScoreHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := urlParam(r, "categoryID")
		if id == "" {
			writeError(w, http.StatusBadRequest, "categoryID required")
			return
		}
		var req submitScoreReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if req.Percentage < 0 || req.Percentage > 100 || req.TotalQuestions < 0 {
			writeError(w, http.StatusBadRequest, "score out of range")
			return
		}
		isNew, err := d.HighScores.CheckAndSave(r.Context(), id, req.Score, req.Percentage, req.TotalQuestions)
		if err != nil {
			d.Log.Error("save high score", "category", id, "error", err)
			writeError(w, http.StatusInternalServerError, "could not save high score")
			return
		}
		var best *highScoreView
		if hs, ok := d.HighScores.Get(r.Context(), id); ok {
			v := viewHighScore(hs, d)
			best = &v
		}
		writeJSON(w, http.StatusOK, map[string]any{"isNewHighScore": isNew, "best": best})
	}
}
