package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/auditcore/evidencer"
	"github.com/auditcore/evidencer/core/pipeline"
	"github.com/auditcore/evidencer/helper"
	"github.com/auditcore/evidencer/model"
)

// openEngine builds a fully wired Evidencer from viper settings and the
// EVIDENCER_DB_* environment. The caller owns Close.
func openEngine() (*evidencer.Evidencer, error) {
	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, err
	}

	engineConfig := model.DefaultEngineConfig()
	if v := viper.GetInt("top_k"); v > 0 {
		engineConfig.TopK = v
	}
	if v := viper.GetInt("rrf_k"); v > 0 {
		engineConfig.RRFK = v
	}
	if v := viper.GetInt("pool_size"); v > 0 {
		engineConfig.PoolSize = v
	}
	if v := viper.GetDuration("adapter_timeout"); v > 0 {
		engineConfig.AdapterTimeout = v
	}
	if v := viper.GetDuration("request_timeout"); v > 0 {
		engineConfig.RequestTimeout = v
	}

	embed, err := buildEmbedder()
	if err != nil {
		return nil, err
	}

	return evidencer.New(dbConfig, viper.GetInt("embedding_dim"), engineConfig, embed)
}

func buildEmbedder() (pipeline.EmbedFunc, error) {
	switch mode := viper.GetString("embedder"); mode {
	case "local":
		return pipeline.DefaultEmbedder()
	case "openai":
		return pipeline.OpenAIEmbedder(
			viper.GetString("openai_base_url"),
			viper.GetString("openai_api_key"),
			viper.GetString("openai_embedding_model"),
		)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedder %q (local|openai|none)", mode)
	}
}

func requireTenant() (string, error) {
	tenant, _ := rootCmd.PersistentFlags().GetString("tenant")
	if tenant == "" {
		tenant = viper.GetString("tenant")
	}
	if tenant == "" {
		return "", fmt.Errorf("--tenant is required (or EVIDENCER_TENANT)")
	}
	return tenant, nil
}
