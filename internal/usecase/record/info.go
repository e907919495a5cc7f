package record

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"kata_review/internal/domain"
	"kata_review/internal/domain/sgf"
	ownErrors "kata_review/internal/errors"
)

// Info carries the root properties that matter for analysis. Nil/empty
// fields were absent in the record.
type Info struct {
	BoardSize *domain.BoardSize
	Komi      *float32
	Rules     string
	Black     string
	White     string
}

func ReadInfo(tree *sgf.GameTree) (Info, error) {
	var info Info
	root := tree.Root()

	if sz, ok := root.Value("SZ"); ok && sz != "" {
		size, err := parseSize(sz)
		if err != nil {
			return info, err
		}
		info.BoardSize = &size
	}

	if km, ok := root.Value("KM"); ok && strings.TrimSpace(km) != "" {
		komi, err := strconv.ParseFloat(strings.TrimSpace(km), 32)
		if err != nil {
			return info, errors.Wrapf(ownErrors.ErrMalformedRecord, "KM[%s]", km)
		}
		k := float32(komi)
		info.Komi = &k
	}

	if ru, ok := root.Value("RU"); ok {
		info.Rules = normalizeRules(ru)
	}
	info.Black, _ = root.Value("PB")
	info.White, _ = root.Value("PW")
	return info, nil
}

// SZ[19] or SZ[19:13] (columns:rows).
func parseSize(sz string) (domain.BoardSize, error) {
	parts := strings.SplitN(strings.TrimSpace(sz), ":", 2)
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return domain.BoardSize{}, errors.Wrapf(ownErrors.ErrMalformedRecord, "SZ[%s]", sz)
	}
	y := x
	if len(parts) == 2 {
		y, err = strconv.Atoi(parts[1])
		if err != nil {
			return domain.BoardSize{}, errors.Wrapf(ownErrors.ErrMalformedRecord, "SZ[%s]", sz)
		}
	}
	if x < 1 || y < 1 || x > 52 || y > 52 {
		return domain.BoardSize{}, errors.Wrapf(ownErrors.ErrMalformedRecord, "SZ[%s] out of range", sz)
	}
	return domain.BoardSize{X: x, Y: y}, nil
}

// KataGo knows rule names like "chinese", "japanese", "tromp-taylor";
// records usually spell them "Chinese", "Japanese", "Tromp Taylor".
func normalizeRules(ru string) string {
	r := strings.ToLower(strings.TrimSpace(ru))
	r = strings.ReplaceAll(r, " ", "-")
	switch r {
	case "jp":
		return "japanese"
	case "cn":
		return "chinese"
	case "nz":
		return "new-zealand"
	case "aga":
		return "aga"
	case "kr", "korean":
		return "korean"
	}
	return r
}
