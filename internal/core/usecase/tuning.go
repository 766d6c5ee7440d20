package usecase

// SearchTuning carries the retrieval pipeline knobs. The multipliers and
// thresholds are empirically tuned defaults, not derived constants; they are
// config-overridable on purpose.
type SearchTuning struct {
	DefaultTopK int

	// Dense strategy sufficiency: fewer hits than this falls through to the
	// lexical strategy.
	DenseMinHits  int
	DenseMinScore float64

	RerankTopN     int
	RerankMaxChars int

	FigureTextPenalty float64
	FigureBoost       float64
	AnchorPageBoost   float64
	VisualIntentBoost float64
	AnchorTextTopN    int

	MMRLambda      float64
	MMRTargetCount int

	TextResultCap   int
	FigureResultCap int
}

func DefaultSearchTuning() SearchTuning {
	return SearchTuning{
		DefaultTopK:       75,
		DenseMinHits:      3,
		DenseMinScore:     0.18,
		RerankTopN:        15,
		RerankMaxChars:    1500,
		FigureTextPenalty: 0.5,
		FigureBoost:       1.2,
		AnchorPageBoost:   1.12,
		VisualIntentBoost: 1.10,
		AnchorTextTopN:    6,
		MMRLambda:         0.7,
		MMRTargetCount:    15,
		TextResultCap:     10,
		FigureResultCap:   5,
	}
}

func (t SearchTuning) normalize() SearchTuning {
	out := t
	def := DefaultSearchTuning()

	if out.DefaultTopK <= 0 {
		out.DefaultTopK = def.DefaultTopK
	}
	if out.DenseMinHits <= 0 {
		out.DenseMinHits = def.DenseMinHits
	}
	if out.DenseMinScore <= 0 {
		out.DenseMinScore = def.DenseMinScore
	}
	if out.RerankTopN <= 0 {
		out.RerankTopN = def.RerankTopN
	}
	if out.RerankMaxChars <= 0 {
		out.RerankMaxChars = def.RerankMaxChars
	}
	if out.FigureTextPenalty <= 0 {
		out.FigureTextPenalty = def.FigureTextPenalty
	}
	if out.FigureBoost <= 0 {
		out.FigureBoost = def.FigureBoost
	}
	if out.AnchorPageBoost <= 0 {
		out.AnchorPageBoost = def.AnchorPageBoost
	}
	if out.VisualIntentBoost <= 0 {
		out.VisualIntentBoost = def.VisualIntentBoost
	}
	if out.AnchorTextTopN <= 0 {
		out.AnchorTextTopN = def.AnchorTextTopN
	}
	if out.MMRLambda <= 0 || out.MMRLambda > 1 {
		out.MMRLambda = def.MMRLambda
	}
	if out.MMRTargetCount <= 0 {
		out.MMRTargetCount = def.MMRTargetCount
	}
	if out.TextResultCap <= 0 {
		out.TextResultCap = def.TextResultCap
	}
	if out.FigureResultCap <= 0 {
		out.FigureResultCap = def.FigureResultCap
	}
	return out
}
