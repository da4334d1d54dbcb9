package testutil

import (
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"opsdash/internal/config"
	"opsdash/internal/engine"
)

// MaintenanceCSV is a six-row export of the maintenance spreadsheet. The last
// row carries a cost and a date that fail coercion.
const MaintenanceCSV = `Setor ,Status Atual,Modelo,Tipo Manutenção,Custo Manutenção,Tempo Parado (dias),Data Manutenção
Produção,Operando,M-100,Preventiva,100,2,2024-01-10
Produção,Parado,M-200,Corretiva,50,5,2024-02-11
Logística,Operando,M-100,Preventiva,300,1,2024-03-05
Logística,Parado,M-300,Corretiva,250,8,2024-03-20
Qualidade,Operando,M-200,Preditiva,80,,2024-04-02
Qualidade,Em Manutenção,M-300,Corretiva,abc,3,not-a-date
`

// QuietLogger discards log output.
func QuietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Config returns the default configuration pointed at a dummy path.
func Config(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.New()
	require.NoError(t, err)
	cfg.Dataset.Path = "maintenance.csv"
	require.NoError(t, cfg.Validate())
	return cfg
}

// Pipeline loads MaintenanceCSV with the default configuration.
func Pipeline(t *testing.T) *engine.Pipeline {
	t.Helper()

	cfg := Config(t)
	log := QuietLogger()

	ds, err := engine.ReadCSV(strings.NewReader(MaintenanceCSV), cfg.LoadOptions(), log)
	require.NoError(t, err)

	reg, err := engine.NewRegistry(cfg.Filters...)
	require.NoError(t, err)

	return engine.NewPipeline(ds, reg, cfg.Dataset.Columns, engine.WithTopN(cfg.TopN), engine.WithLogger(log))
}
