package analysis

import (
	"kata_review/internal/bootstrap"
	"kata_review/internal/domain"
	"kata_review/internal/usecase/record"
)

// ResolveParams decides rules, komi and board size for a game. With
// authority "config" the configured rules and komi win; with "record" the
// record's KM/RU win wherever they are present. The board size of a record
// is always taken from its SZ, since its moves are only meaningful on that
// board; the configured size applies to records without SZ.
func ResolveParams(cfg bootstrap.AnalysisConfig, info record.Info) domain.AnalysisParams {
	params := domain.AnalysisParams{
		Rules:            cfg.Rules,
		Komi:             cfg.Komi,
		BoardSize:        domain.Square(cfg.BoardSize),
		MaxVisits:        cfg.MaxVisits,
		RequestedOutputs: Outputs(cfg),
	}
	if info.BoardSize != nil {
		params.BoardSize = *info.BoardSize
	}

	if cfg.Authoritative == bootstrap.AuthorityRecord {
		if info.Rules != "" {
			params.Rules = info.Rules
		}
		if info.Komi != nil {
			params.Komi = *info.Komi
		}
		return params
	}

	// config wins, the record only fills gaps
	if params.Rules == "" {
		params.Rules = info.Rules
	}
	return params
}

func Outputs(cfg bootstrap.AnalysisConfig) domain.OutputChannels {
	var out domain.OutputChannels
	if cfg.IncludePolicy {
		out |= domain.Policy
	}
	if cfg.IncludeOwnership {
		out |= domain.Ownership
	}
	if cfg.IncludePV {
		out |= domain.PrincipalVariation
	}
	return out
}
