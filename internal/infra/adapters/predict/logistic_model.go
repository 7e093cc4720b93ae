package predict

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/adapter"
)

var _ adapter.ModelLoader = (*JSONLoader)(nil)

// pkg is the on-disk prediction package: a logistic model plus metadata.
type pkg struct {
	model.ModelMetadata
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

type logistic struct {
	weights []float64
	bias    float64
}

func (l *logistic) Predict(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != len(l.weights) {
			return nil, fmt.Errorf("row %d: got %d features, model expects %d", i, len(row), len(l.weights))
		}
		z := l.bias
		for j, x := range row {
			z += l.weights[j] * x
		}
		out[i] = 1 / (1 + math.Exp(-z))
	}
	return out, nil
}

// JSONLoader opens prediction packages written as JSON.
type JSONLoader struct{}

func NewJSONLoader() *JSONLoader { return &JSONLoader{} }

func (JSONLoader) LoadPackage(path string) (adapter.Classifier, model.ModelMetadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, model.ModelMetadata{}, fmt.Errorf("read model package: %w", err)
	}
	var p pkg
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, model.ModelMetadata{}, fmt.Errorf("decode model package: %w", err)
	}
	if len(p.Weights) == 0 {
		return nil, model.ModelMetadata{}, errors.New("model package has no weights")
	}
	if len(p.Features) != len(p.Weights) {
		return nil, model.ModelMetadata{}, fmt.Errorf("model package lists %d features for %d weights", len(p.Features), len(p.Weights))
	}
	return &logistic{weights: p.Weights, bias: p.Bias}, p.ModelMetadata, nil
}
