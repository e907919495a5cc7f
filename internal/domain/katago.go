package domain

// Запрос к KataGo analysis engine, одна строка JSON на позицию.
type AnalysisRequest struct {
	ID               string      `json:"id"`
	Moves            [][2]string `json:"moves"` // [["B","D4"], ["W","Q16"], ...]
	InitialStones    [][2]string `json:"initialStones,omitempty"`
	Rules            string      `json:"rules"`
	Komi             float32     `json:"komi"`
	BoardXSize       int         `json:"boardXSize"`
	BoardYSize       int         `json:"boardYSize"`
	MaxVisits        uint32      `json:"maxVisits"`
	IncludePolicy    bool        `json:"includePolicy"`
	IncludeOwnership bool        `json:"includeOwnership"`
}

// Ответ KataGo с анализом позиции. Все числовые поля указатели:
// отсутствие поля должно отличаться от нуля.
type AnalysisResponse struct {
	ID             string `json:"id"`
	TurnNumber     *int   `json:"turnNumber,omitempty"`
	IsDuringSearch bool   `json:"isDuringSearch,omitempty"`

	Error   string `json:"error,omitempty"`
	Field   string `json:"field,omitempty"`
	Warning string `json:"warning,omitempty"`

	// Плоская форма, которую отдают простые заглушки движка.
	Winrate   *float32 `json:"winrate,omitempty"`
	ScoreLead *float32 `json:"scoreLead,omitempty"`
	Visits    *uint32  `json:"visits,omitempty"`

	RootInfo  *RootInfo  `json:"rootInfo,omitempty"`
	MoveInfos []MoveInfo `json:"moveInfos,omitempty"`
	Ownership []float32  `json:"ownership,omitempty"`
	Policy    []float32  `json:"policy,omitempty"`
}

// HasAnalysis is false for the standalone warning lines KataGo sends ahead
// of the real answer.
func (r AnalysisResponse) HasAnalysis() bool {
	return r.Winrate != nil || r.RootInfo != nil || len(r.MoveInfos) > 0
}

// Информация о корневой позиции (общая информация)
type RootInfo struct {
	CurrentPlayer string   `json:"currentPlayer"` // "W" или "B"
	Winrate       *float32 `json:"winrate"`
	ScoreLead     *float32 `json:"scoreLead"`
	Utility       float32  `json:"utility"`
	Visits        *uint32  `json:"visits"`
}

// Информация о возможных ходах (вариантах)
type MoveInfo struct {
	Move      string   `json:"move"`
	Order     int      `json:"order"`
	Winrate   float32  `json:"winrate"`
	Visits    uint32   `json:"visits"`
	ScoreLead float32  `json:"scoreLead"`
	PV        []string `json:"pv"` // Principal Variation (последовательность ходов)
}
