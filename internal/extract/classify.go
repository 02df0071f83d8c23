package extract

import (
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/newstools/docketwatch/internal/model"
)

// caseTypeCode matches the filing-type code between the first two hyphens of
// a case number, e.g. the "cv" in "3:26-cv-01234".
var caseTypeCode = regexp.MustCompile(`-(\w{1,4})-`)

// Filing-type codes observed across district and bankruptcy feeds. District
// courts label multidistrict transfers "bk", so that code is civil here, not
// bankruptcy.
var civilCodes = map[string]bool{
	"cv": true, "mc": true, "ct": true, "dp": true, "md": true,
	"cm": true, "fp": true, "gd": true, "ml": true, "pf": true,
	"sw": true, "xc": true, "af": true, "de": true, "dj": true,
	"gp": true, "oe": true, "aa": true, "at": true, "adr": true,
	"s1": true, "av": true, "wp": true, "2255": true,
	"wf": true, "s": true, "dcn": true, "ad": true, "w": true,
	"ds": true, "sp": true, "rd": true, "rj": true, "bk": true,
	"ma": true, "ra": true, "hcd": true, "DX": true, "BZ": true,
	"AM": true, "AL": true, "DG": true, "GL": true, "PV": true,
	"PP": true, "LV": true, "CB": true, "CM": true, "DS": true,
	"UR": true, "LD": true, "FL": true, "EC": true, "DV": true,
	"op": true, "ph": true, "BC": true, "sb": true, "rf": true,
}

var criminalCodes = map[string]bool{
	"cr": true, "mj": true, "po": true, "gj": true, "cb": true,
	"tp": true, "pt": true, "fj": true, "tk": true,
	"hc": true, "cn": true, "xr": true, "pr": true,
	"mw": true, "r": true, "sm": true, "m": true,
	"te": true, "mr": true, "mb": true,
	"mm": true, "~gr": true, "y": true, "wt": true,
}

var vaccineCodes = map[string]bool{"vc": true, "vv": true}

var congressionalCodes = map[string]bool{"cg": true}

// ClassifyCase determines the case type. Bankruptcy, appeals, supreme, and
// multidistrict courts publish a single filing type, so their code is pinned
// regardless of the case number. Everything else consults the code tables;
// an unrecognized code classifies as civil with a warning, because dropping
// a filing is worse than mislabeling it. A case number with no code pattern
// at all is an error.
func ClassifyCase(caseNumber string, courtType model.CourtType) (model.CaseType, error) {
	switch courtType {
	case model.CourtBankruptcy:
		return model.CaseBankruptcy, nil
	case model.CourtAppeals, model.CourtSupreme:
		return model.CaseAppeals, nil
	case model.CourtMultidistrict:
		return model.CaseMultidistrict, nil
	}

	m := caseTypeCode.FindStringSubmatch(caseNumber)
	if m == nil {
		return "", eris.Errorf("extract: no filing-type code in case number %q", caseNumber)
	}
	code := m[1]

	switch {
	case civilCodes[code]:
		return model.CaseCivil, nil
	case criminalCodes[code]:
		return model.CaseCriminal, nil
	case vaccineCodes[code]:
		return model.CaseVaccine, nil
	case congressionalCodes[code]:
		return model.CaseCongressional, nil
	}

	zap.L().Warn("unknown filing-type code, defaulting to civil",
		zap.String("code", code),
		zap.String("case_number", caseNumber),
	)
	return model.CaseCivil, nil
}
