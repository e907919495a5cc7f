package report

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"kata_review/internal/domain"
	"kata_review/internal/usecase/katago"
)

type yamlReport struct {
	ID       string     `yaml:"id"`
	Source   string     `yaml:"source,omitempty"`
	Rules    string     `yaml:"rules"`
	Komi     float32    `yaml:"komi"`
	Board    string     `yaml:"board"`
	Visits   uint32     `yaml:"max_visits"`
	Started  time.Time  `yaml:"started_at"`
	Finished time.Time  `yaml:"finished_at"`
	Setup    []string   `yaml:"setup,omitempty"`
	Nodes    []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	Ply          int     `yaml:"ply"`
	Move         string  `yaml:"move"`
	BlackWinrate float32 `yaml:"black_winrate"`
	BlackLead    float32 `yaml:"black_score_lead"`
	Visits       uint32  `yaml:"visits"`
	Best         string  `yaml:"best,omitempty"`
	Loss         float32 `yaml:"winrate_loss,omitempty"`
	Mistake      bool    `yaml:"mistake,omitempty"`
	Comment      string  `yaml:"comment,omitempty"`
}

func WriteYAML(w io.Writer, run domain.Analysis) error {
	rep := yamlReport{
		ID:       run.ID,
		Source:   run.Source,
		Rules:    run.Params.Rules,
		Komi:     run.Params.Komi,
		Board:    run.Params.BoardSize.String(),
		Visits:   run.Params.MaxVisits,
		Started:  run.StartedAt,
		Finished: run.FinishedAt,
	}
	for _, m := range run.InitialStones {
		rep.Setup = append(rep.Setup, katago.MoveLabel(m, run.Params.BoardSize))
	}
	for _, r := range rows(run) {
		rep.Nodes = append(rep.Nodes, yamlNode{
			Ply:          r.Ply,
			Move:         r.Move,
			BlackWinrate: r.BlackWinrate,
			BlackLead:    r.BlackLead,
			Visits:       r.Visits,
			Best:         r.Best,
			Loss:         r.Loss,
			Mistake:      r.mistake(),
			Comment:      r.Comment,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}
