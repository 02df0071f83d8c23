package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCourtTypeDisplay(t *testing.T) {
	assert.Equal(t, "District Court", CourtDistrict.Display())
	assert.Equal(t, "Bankruptcy Court", CourtBankruptcy.Display())
	assert.Equal(t, "Z", CourtType("Z").Display())
}

func TestCourtTypeValid(t *testing.T) {
	for _, ct := range []CourtType{CourtSupreme, CourtAppeals, CourtMultidistrict, CourtFederalClaims, CourtIntlTrade, CourtDistrict, CourtBankruptcy} {
		assert.True(t, ct.Valid(), "type %s", ct)
	}
	assert.False(t, CourtType("Z").Valid())
	assert.False(t, CourtType("").Valid())
}

func TestCourtLabel(t *testing.T) {
	c := Court{Name: "District of Columbia", Type: CourtDistrict}
	assert.Equal(t, "District Court: District of Columbia", c.Label())
}

func TestCaseTypeDisplay(t *testing.T) {
	assert.Equal(t, "Civil", CaseCivil.Display())
	assert.Equal(t, "Criminal", CaseCriminal.Display())
	assert.Equal(t, "Bankruptcy", CaseBankruptcy.Display())
}
