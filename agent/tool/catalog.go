package tool

import (
	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	planx "github.com/tanpawarit/Chative-Finance-Assistant/agent/plan"
)

var _ contractx.ToolCatalog = (*Catalog)(nil)

// Adapters lists the concrete adapter per kind. Nil entries are reported
// as unconfigured at dispatch time.
type Adapters struct {
	DocumentQA contractx.ToolAdapter
	News       contractx.ToolAdapter
	GeneralQA  contractx.ToolAdapter
	ImageQA    contractx.ToolAdapter
	LawQA      contractx.ToolAdapter
}

type Catalog struct {
	adapters Adapters
}

// NewCatalog builds a catalog, guarding every adapter with a breaker when
// a registry is given.
func NewCatalog(adapters Adapters, breakers *BreakerRegistry) *Catalog {
	if breakers != nil {
		adapters = Adapters{
			DocumentQA: breakers.Wrap(planx.KindDocumentQA, adapters.DocumentQA),
			News:       breakers.Wrap(planx.KindNews, adapters.News),
			GeneralQA:  breakers.Wrap(planx.KindGeneralQA, adapters.GeneralQA),
			ImageQA:    breakers.Wrap(planx.KindImageQA, adapters.ImageQA),
			LawQA:      breakers.Wrap(planx.KindLawQA, adapters.LawQA),
		}
	}
	return &Catalog{adapters: adapters}
}

func (c *Catalog) DocumentQA() contractx.ToolAdapter { return c.adapters.DocumentQA }
func (c *Catalog) News() contractx.ToolAdapter       { return c.adapters.News }
func (c *Catalog) GeneralQA() contractx.ToolAdapter  { return c.adapters.GeneralQA }
func (c *Catalog) ImageQA() contractx.ToolAdapter    { return c.adapters.ImageQA }
func (c *Catalog) LawQA() contractx.ToolAdapter      { return c.adapters.LawQA }

// Configured reports which kinds have an adapter.
func (c *Catalog) Configured() []planx.ToolKind {
	var out []planx.ToolKind
	for _, k := range planx.Kinds {
		var a contractx.ToolAdapter
		switch k {
		case planx.KindDocumentQA:
			a = c.adapters.DocumentQA
		case planx.KindNews:
			a = c.adapters.News
		case planx.KindGeneralQA:
			a = c.adapters.GeneralQA
		case planx.KindImageQA:
			a = c.adapters.ImageQA
		case planx.KindLawQA:
			a = c.adapters.LawQA
		}
		if a != nil {
			out = append(out, k)
		}
	}
	return out
}
