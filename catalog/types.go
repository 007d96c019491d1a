// Package catalog declares the resource types of the Analyze Re API.
package catalog

import (
	"github.com/analyzere/analyzere-go/faults"
	"github.com/analyzere/analyzere-go/resource"
)

// Resources.
var (
	Layer                = resource.NewType("Layer", resource.KindResource)
	Portfolio            = resource.NewType("Portfolio", resource.KindResource)
	LossAttribute        = resource.NewType("LossAttribute", resource.KindResource)
	LossFilter           = resource.NewType("LossFilter", resource.KindResource)
	AnalysisProfile      = resource.NewType("AnalysisProfile", resource.KindResource)
	ExchangeRateProfile  = resource.NewType("ExchangeRateProfile", resource.KindResource)
	EventCatalog         = resource.NewType("EventCatalog", resource.KindResource, resource.TraitData)
	ExchangeRateTable    = resource.NewType("ExchangeRateTable", resource.KindResource, resource.TraitData)
	Distribution         = resource.NewType("Distribution", resource.KindResource, resource.TraitData)
	LossSet              = resource.NewType("LossSet", resource.KindResource, resource.TraitData)
	Simulation           = resource.NewType("Simulation", resource.KindResource, resource.TraitData)
	LayerView            = resource.NewType("LayerView", resource.KindResource, resource.TraitMetrics)
	PortfolioView        = resource.NewType("PortfolioView", resource.KindResource, resource.TraitMetrics)
	DynamicPortfolioView = resource.NewType("DynamicPortfolioView", resource.KindResource, resource.TraitMetrics)
	OptimizationView     = resource.NewType("OptimizationView", resource.KindResource, resource.TraitOptimization)
)

// Embedded values.
var (
	MonetaryUnit              = resource.NewType("MonetaryUnit", resource.KindEmbedded)
	Fee                       = resource.NewType("Fee", resource.KindEmbedded)
	FeeReference              = resource.NewType("FeeReference", resource.KindEmbedded)
	Reinstatement             = resource.NewType("Reinstatement", resource.KindEmbedded)
	Treaty                    = resource.NewType("Treaty", resource.KindEmbedded)
	InuringTerms              = resource.NewType("InuringTerms", resource.KindEmbedded)
	LossSetProfile            = resource.NewType("LossSetProfile", resource.KindEmbedded)
	ExchangeRateSelectionRule = resource.NewType("ExchangeRateSelectionRule", resource.KindEmbedded)
	OptimizationDomain        = resource.NewType("OptimizationDomain", resource.KindEmbedded)
)

// Resources lists every resource type, in declaration order.
func Resources() []*resource.Type {
	return []*resource.Type{
		Layer, Portfolio, LossAttribute, LossFilter, AnalysisProfile,
		ExchangeRateProfile, EventCatalog, ExchangeRateTable, Distribution,
		LossSet, Simulation, LayerView, PortfolioView, DynamicPortfolioView,
		OptimizationView,
	}
}

// NewRegistry returns a registry holding every resource type.
func NewRegistry() *resource.Registry {
	return resource.NewRegistry(Resources()...)
}

// NewMonetaryUnit builds the {value, currency} pair used across the API.
func NewMonetaryUnit(value float64, currency string) *resource.Object {
	return resource.New(MonetaryUnit, map[string]resource.Value{
		"value":    value,
		"currency": currency,
	})
}

func feeReference(path ...string) *resource.Object {
	ref := make([]resource.Value, 0, len(path)+1)
	ref = append(ref, "layer")
	for _, part := range path {
		ref = append(ref, part)
	}
	return resource.New(FeeReference, map[string]resource.Value{"ref": ref})
}

// Premium references the premium of the enclosing layer.
func Premium() *resource.Object { return feeReference("premium") }

func ReinstatementPremium() *resource.Object { return feeReference("reinstatement_premium") }

// Losses references the losses of the enclosing layer.
func Losses() *resource.Object { return feeReference("losses") }

// FeeReferenceFromFee references another fee of the enclosing layer by name.
func FeeReferenceFromFee(fee *resource.Object) (*resource.Object, error) {
	if fee == nil {
		return nil, faults.NewTypedError(faults.ValidationError, "fee reference requires a fee", nil)
	}
	name, ok := fee.Value("name").(string)
	if !ok || name == "" {
		return nil, faults.NewTypedError(faults.ValidationError, "fee reference requires a named fee", nil)
	}
	return feeReference("fees", name), nil
}
