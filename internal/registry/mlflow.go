package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spboyer/evalgate/internal/runstore"
)

// promptTextTag is the model-version tag MLflow stores prompt templates under.
const promptTextTag = "mlflow.prompt.text"

// MLflowRegistry resolves prompt aliases through the MLflow registered-model API,
// which backs the MLflow prompt registry.
type MLflowRegistry struct {
	client *runstore.MLflowClient
}

// NewMLflowRegistry shares client's transport, throttle and error handling.
func NewMLflowRegistry(client *runstore.MLflowClient) *MLflowRegistry {
	return &MLflowRegistry{client: client}
}

type mlflowModelVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Tags    []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"tags"`
}

// LoadVersion resolves name@alias.
func (r *MLflowRegistry) LoadVersion(ctx context.Context, name, alias string) (PromptVersion, error) {
	var resp struct {
		ModelVersion mlflowModelVersion `json:"model_version"`
	}
	q := url.Values{"name": {name}, "alias": {alias}}
	if err := r.client.Do(ctx, http.MethodGet, "/api/2.0/mlflow/registered-models/alias", q, nil, &resp); err != nil {
		if runstore.IsNotFound(err) {
			return PromptVersion{}, fmt.Errorf("%w: %s@%s", ErrAliasNotFound, name, alias)
		}
		return PromptVersion{}, err
	}

	version, err := strconv.Atoi(resp.ModelVersion.Version)
	if err != nil {
		return PromptVersion{}, fmt.Errorf("prompt %s@%s has non-numeric version %q", name, alias, resp.ModelVersion.Version)
	}
	pv := PromptVersion{Name: name, Version: version, Tags: map[string]string{}}
	for _, t := range resp.ModelVersion.Tags {
		pv.Tags[t.Key] = t.Value
	}
	pv.Template = pv.Tags[promptTextTag]
	return pv, nil
}

// SetAlias points name@alias at version.
func (r *MLflowRegistry) SetAlias(ctx context.Context, name, alias string, version int) error {
	req := map[string]string{"name": name, "alias": alias, "version": strconv.Itoa(version)}
	return r.client.Do(ctx, http.MethodPost, "/api/2.0/mlflow/registered-models/alias", nil, req, nil)
}

// Ensure MLflowRegistry satisfies Registry.
var _ Registry = (*MLflowRegistry)(nil)
