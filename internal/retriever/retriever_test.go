package retriever

import (
	"errors"
	"testing"

	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/Ayash-Bera/device-advisor/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsBackend(t *testing.T) {
	logger := utils.NewTestLogger()

	tests := []struct {
		name string
		cfg  config.SearchConfig
		want string
	}{
		{
			name: "explicit local",
			cfg:  config.SearchConfig{UseLocal: true, Algolia: config.AlgoliaConfig{AppID: "a", APIKey: "b"}},
			want: ProviderLocal,
		},
		{
			name: "algolia with credentials",
			cfg:  config.SearchConfig{Provider: ProviderAlgolia, Algolia: config.AlgoliaConfig{AppID: "a", APIKey: "b"}},
			want: ProviderAlgolia,
		},
		{
			name: "algolia without key falls back",
			cfg:  config.SearchConfig{Provider: ProviderAlgolia, Algolia: config.AlgoliaConfig{AppID: "a"}},
			want: ProviderLocal,
		},
		{
			name: "elasticsearch",
			cfg:  config.SearchConfig{Provider: ProviderElasticsearch, Elasticsearch: config.ElasticsearchConfig{Addresses: []string{"http://localhost:9200"}}},
			want: ProviderElasticsearch,
		},
		{
			name: "elasticsearch without addresses falls back",
			cfg:  config.SearchConfig{Provider: ProviderElasticsearch},
			want: ProviderLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.cfg, logger)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Name())
		})
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(config.SearchConfig{Provider: "solr"}, utils.NewTestLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}
