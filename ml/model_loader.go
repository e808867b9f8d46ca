package ml

import (
	"encoding/json"
	"os"
)

// FormatVersion is the artifact format this build reads.
const FormatVersion = 1

type envelope struct {
	FormatVersion int    `json:"format_version"`
	Type          string `json:"type"`
}

// LoadModel reads a serialized classifier.
func LoadModel(path string) (MLModel, error) {
	payload, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	return decodeModel(path, payload)
}

// LoadScaler reads a serialized scaler.
func LoadScaler(path string) (Scaler, error) {
	payload, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	return decodeScaler(path, payload)
}

// LoadColumns reads an ordered expected-column list.
func LoadColumns(path string) ([]string, error) {
	payload, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	var columns []string
	if err := json.Unmarshal(payload, &columns); err != nil {
		return nil, incompatible(path, "decode columns: %v", err)
	}
	if len(columns) == 0 {
		return nil, incompatible(path, "column list is empty")
	}
	return columns, nil
}

func decodeModel(path string, payload []byte) (MLModel, error) {
	kind, err := readEnvelope(path, payload)
	if err != nil {
		return nil, err
	}
	var (
		model    MLModel
		validate func() error
	)
	switch kind {
	case "logistic_regression":
		m := &LogisticRegression{}
		model, validate = m, m.validate
	case "linear_svm":
		m := &LinearSVM{}
		model, validate = m, m.validate
	case "decision_tree":
		m := &DecisionTree{}
		model, validate = m, m.validate
	default:
		return nil, incompatible(path, "unsupported model type %q", kind)
	}
	if err := json.Unmarshal(payload, model); err != nil {
		return nil, incompatible(path, "decode %s: %v", kind, err)
	}
	if err := validate(); err != nil {
		return nil, incompatible(path, "%s: %v", kind, err)
	}
	return model, nil
}

func decodeScaler(path string, payload []byte) (Scaler, error) {
	kind, err := readEnvelope(path, payload)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "standard":
		s := &StandardScaler{}
		if err := json.Unmarshal(payload, s); err != nil {
			return nil, incompatible(path, "decode standard scaler: %v", err)
		}
		if err := s.validate(); err != nil {
			return nil, incompatible(path, "%v", err)
		}
		return s, nil
	case "minmax":
		s := &MinMaxScaler{}
		if err := json.Unmarshal(payload, s); err != nil {
			return nil, incompatible(path, "decode minmax scaler: %v", err)
		}
		if err := s.validate(); err != nil {
			return nil, incompatible(path, "%v", err)
		}
		return s, nil
	default:
		return nil, incompatible(path, "unsupported scaler type %q", kind)
	}
}

func readEnvelope(path string, payload []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", incompatible(path, "not a JSON artifact: %v", err)
	}
	if env.FormatVersion != FormatVersion {
		return "", incompatible(path, "format_version %d, this build reads %d", env.FormatVersion, FormatVersion)
	}
	if env.Type == "" {
		return "", incompatible(path, "artifact does not declare a type")
	}
	return env.Type, nil
}

func readArtifact(path string) ([]byte, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, missing(path, err)
		}
		return nil, incompatible(path, "read: %v", err)
	}
	return payload, nil
}
