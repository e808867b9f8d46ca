package ml

// MLModel is a fitted binary classifier.
type MLModel interface {
	// Predict returns the class label for an already-scaled vector.
	Predict(features []float64) (int, error)
	// Classes lists the labels in the order PredictProba reports them.
	Classes() []int
	// InputWidth is the number of features the model was fit on.
	InputWidth() int
}

// ProbabilisticModel is implemented by models that can report class membership.
type ProbabilisticModel interface {
	MLModel
	// PredictProba returns one probability per entry of Classes, or ErrNoProbability.
	PredictProba(features []float64) ([]float64, error)
}
