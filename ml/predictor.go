package ml

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Verdict is the outcome of one prediction.
type Verdict struct {
	Label          int      `json:"label"`
	Churn          bool     `json:"churn"`
	Probability    float64  `json:"probability"`
	HasProbability bool     `json:"has_probability"`
	Strategy       Strategy `json:"strategy"`
}

// Confidence is the probability of the predicted verdict: the positive-class
// probability for churn, its complement for stay.
func (v *Verdict) Confidence() float64 {
	if v.Churn {
		return v.Probability
	}
	return 1 - v.Probability
}

// ConfidenceText formats Confidence as a percentage with two decimals, or ""
// when the model gave no probability.
func (v *Verdict) ConfidenceText() string {
	if !v.HasProbability {
		return ""
	}
	return fmt.Sprintf("%.2f%%", v.Confidence()*100)
}

// Message is the human-readable verdict.
func (v *Verdict) Message() string {
	if v.Churn {
		return "This customer is likely to churn."
	}
	return "This customer is likely to stay."
}

// Predictor runs encode, validate, scale and predict against one artifact.
type Predictor struct {
	artifact *Artifact
	encoder  Encoder
	positive int
	probIdx  int
	logger   *zap.Logger
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Predictor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPredictor binds an encoder to the artifact's schema.
func NewPredictor(artifact *Artifact, opts ...Option) (*Predictor, error) {
	if artifact == nil || artifact.Model == nil || artifact.Scaler == nil || artifact.Schema == nil {
		return nil, errors.New("artifact is not loaded")
	}
	p := &Predictor{
		artifact: artifact,
		positive: artifact.Schema.Positive(),
		probIdx:  -1,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	encoder, err := NewEncoder(artifact.Schema, artifact.Columns)
	if err != nil {
		return nil, &ArtifactError{Path: source(artifact), Err: fmt.Errorf("%w: %v", ErrIncompatibleArtifact, err)}
	}
	p.encoder = encoder

	for i, c := range artifact.Model.Classes() {
		if c == p.positive {
			p.probIdx = i
		}
	}
	if p.probIdx < 0 {
		return nil, &ArtifactError{Path: source(artifact), Err: fmt.Errorf("%w: positive class %d not among model classes %v",
			ErrIncompatibleArtifact, p.positive, artifact.Model.Classes())}
	}

	if width := len(encoder.Columns()); width != artifact.ExpectedWidth() {
		p.logger.Warn("schema layout disagrees with artifact width; every prediction will fail",
			zap.String("strategy", string(encoder.Strategy())),
			zap.Int("schema_columns", width),
			zap.Int("expected", artifact.ExpectedWidth()))
	}
	return p, nil
}

func source(a *Artifact) string {
	if len(a.Sources) == 0 {
		return "artifact"
	}
	return a.Sources[0]
}

// Schema returns the schema the predictor encodes with.
func (p *Predictor) Schema() *Schema { return p.artifact.Schema }

// Columns is the ordered column layout fed to the scaler.
func (p *Predictor) Columns() []string { return p.encoder.Columns() }

// Strategy reports the configured encoding strategy.
func (p *Predictor) Strategy() Strategy { return p.encoder.Strategy() }

// ExpectedWidth is the artifact's declared input width.
func (p *Predictor) ExpectedWidth() int { return p.artifact.ExpectedWidth() }

// Encode runs the encoder and width check without scaling.
func (p *Predictor) Encode(record Record) (FeatureVector, error) {
	var (
		vector  FeatureVector
		dropped []string
		err     error
	)
	if fe, ok := p.encoder.(*frameEncoder); ok {
		vector, dropped, err = fe.reindex(record)
	} else {
		vector, err = p.encoder.Encode(record)
	}
	if err != nil {
		return nil, &StageError{Stage: StageValidating, Err: err}
	}
	if len(dropped) > 0 {
		p.logger.Debug("dropping columns absent from expected layout", zap.Strings("columns", dropped))
	}
	if err := ValidateWidth(vector, p.artifact.ExpectedWidth()); err != nil {
		return nil, &StageError{Stage: StageValidating, Err: err}
	}
	return vector, nil
}

// Predict classifies one record. The vector is built for this call only.
func (p *Predictor) Predict(ctx context.Context, record Record) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector, err := p.Encode(record)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scaled, err := p.artifact.Scaler.Transform(vector)
	if err != nil {
		return nil, &StageError{Stage: StageScaling, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	label, err := p.artifact.Model.Predict(scaled)
	if err != nil {
		return nil, &StageError{Stage: StagePredicting, Err: err}
	}
	verdict := &Verdict{
		Label:    label,
		Churn:    label == p.positive,
		Strategy: p.encoder.Strategy(),
	}

	if pm, ok := p.artifact.Model.(ProbabilisticModel); ok {
		proba, err := pm.PredictProba(scaled)
		switch {
		case errors.Is(err, ErrNoProbability):
		case err != nil:
			return nil, &StageError{Stage: StagePredicting, Err: err}
		case len(proba) <= p.probIdx:
			return nil, &StageError{Stage: StagePredicting, Err: fmt.Errorf("model returned %d probabilities", len(proba))}
		default:
			verdict.Probability = proba[p.probIdx]
			verdict.HasProbability = true
		}
	}
	return verdict, nil
}
