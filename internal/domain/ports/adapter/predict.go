package adapter

import "wildfire-dashboard/internal/domain/model"

// Classifier scores feature rows; scores are probabilities in [0,1].
type Classifier interface {
	Predict(features [][]float64) ([]float64, error)
}

// ModelLoader opens a serialized prediction package.
type ModelLoader interface {
	LoadPackage(path string) (Classifier, model.ModelMetadata, error)
}
