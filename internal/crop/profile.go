// Package crop holds the static per-crop parameter table: physiological
// profiles, BBCH stage catalogs, classifier breakpoints and harvest timing.
// The table is data only; the simulator, classifier and predictor query it.
package crop

// Category is the phenological phase a stage code belongs to.
type Category string

// Phenological phases used by the stage catalogs.
const (
	CategoryGermination      Category = "germination"
	CategoryLeafDevelopment  Category = "leaf_development"
	CategoryTillering        Category = "tillering"
	CategoryStemElongation   Category = "stem_elongation"
	CategoryBooting          Category = "booting"
	CategoryHeading          Category = "heading"
	CategoryFlowering        Category = "flowering"
	CategoryFruitDevelopment Category = "fruit_development"
	CategoryRipening         Category = "ripening"
	CategorySenescence       Category = "senescence"
)

// Profile holds the physiological constants of one crop.
// Temperatures are °C, temperature sums are °C·day. MaxEffectiveTemp,
// LeafLifespan and Respiration are catalog data; the growth model does not
// read them.
type Profile struct {
	BaseTemp         float64 `yaml:"base_temp"`
	MaxEffectiveTemp float64 `yaml:"max_effective_temp" validate:"gtfield=BaseTemp"`

	// TSUMEM, TSUM1 and TSUM2: sowing → emergence, emergence → anthesis
	// (cumulative from sowing), anthesis → maturity.
	TSumEmergence float64 `yaml:"tsum_emergence" validate:"gt=0"`
	TSumAnthesis  float64 `yaml:"tsum_anthesis" validate:"gtfield=TSumEmergence"`
	TSumMaturity  float64 `yaml:"tsum_maturity" validate:"gt=0"`

	LeafLifespan float64 `yaml:"leaf_lifespan" validate:"gt=0"` // days
	Q10          float64 `yaml:"q10" validate:"gt=1"`
	MaxLAI       float64 `yaml:"max_lai" validate:"gt=0"`

	// Weekly water (mm) at which water stress bottoms out and disappears.
	MinWater     float64 `yaml:"min_water" validate:"gte=0"`
	OptimalWater float64 `yaml:"optimal_water" validate:"gtfield=MinWater"`

	// PhotoRate is gross assimilation in g/m²/day at full light interception.
	PhotoRate  float64 `yaml:"photosynthesis_rate" validate:"gt=0"`
	SeasonDays int     `yaml:"season_days" validate:"gt=0"`

	Conversion  OrganCoefficients `yaml:"conversion"`
	Respiration OrganCoefficients `yaml:"respiration"`
}

// OrganCoefficients carries one coefficient per plant organ.
type OrganCoefficients struct {
	Leaves  float64 `yaml:"leaves" validate:"gte=0,lte=1"`
	Stems   float64 `yaml:"stems" validate:"gte=0,lte=1"`
	Roots   float64 `yaml:"roots" validate:"gte=0,lte=1"`
	Storage float64 `yaml:"storage" validate:"gte=0,lte=1"`
}

// Weighted returns the coefficients averaged by the given organ partition.
func (o OrganCoefficients) Weighted(p OrganCoefficients) float64 {
	total := p.Leaves + p.Stems + p.Roots + p.Storage
	if total <= 0 {
		return 0
	}
	return (o.Leaves*p.Leaves + o.Stems*p.Stems + o.Roots*p.Roots + o.Storage*p.Storage) / total
}

// TSumTotal returns the temperature sum from sowing to maturity.
func (p Profile) TSumTotal() float64 {
	return p.TSumAnthesis + p.TSumMaturity
}

// StageEntry is one row of a crop's BBCH catalog.
type StageEntry struct {
	Code        string   `yaml:"code" json:"code" validate:"required"`
	Description string   `yaml:"description" json:"description"`
	Category    Category `yaml:"category" json:"category" validate:"oneof=germination leaf_development tillering stem_elongation booting heading flowering fruit_development ripening senescence"`
}

// Breakpoint maps development stages strictly below Below onto Code.
type Breakpoint struct {
	Below float64 `yaml:"below" validate:"gte=0"`
	Code  string  `yaml:"code" validate:"required"`
}

// Spec is the complete static description of one crop.
type Spec struct {
	Name         string         `yaml:"-"`
	Profile      Profile        `yaml:"profile"`
	ReadyCode    string         `yaml:"ready_code" validate:"required"`
	TerminalCode string         `yaml:"terminal_code"`
	Stages       []StageEntry   `yaml:"stages" validate:"required,min=1,dive"`
	Breakpoints  []Breakpoint   `yaml:"breakpoints" validate:"required,min=1,dive"`
	HarvestDays  map[string]int `yaml:"harvest_days" validate:"dive,gte=0"`
}
