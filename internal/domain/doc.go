// Package domain models a synthetic mortgage book and the climate stress test
// applied to it.
//
// # Reference Data
//
// Each loan belongs to a district. Districts carry two climate hazard scores
// on a 0–1 scale and a map coordinate:
//
//	Flood_Risk  physical hazard to the collateral (destroys property value)
//	Heat_Risk   hazard to borrower income (raises default probability)
//
// The built-in district table uses CEEW district vulnerability scores. It can
// be replaced with a YAML file, see [LoadDistricts]. Districts are split into
// two property tiers: metro districts draw higher property values at
// generation time.
//
// # Stress Formula
//
// A scenario fixes a severity s in [0,1]. For every loan:
//
//	stressed_value = property_value × (1 − flood_risk × s)
//	stressed_ltv   = loan_amount / stressed_value
//	stressed_pd    = base_pd × (1 + heat_risk × s × 10)
//
// A loan is CRITICAL when stressed_ltv > 0.90 or stressed_pd > 0.15 and SAFE
// otherwise. There is no third state. See [Stress] and [Classify].
//
// Scenarios:
//
//	A  Mild (1.5°C)      s = 0.15
//	B  Moderate (2.0°C)  s = 0.30
//	C  Severe (3.0°C)    s = 0.50
//
// # Units
//
// Amounts are whole rupees. Summary figures are reported in crores
// (1 crore = 10,000,000 rupees) rounded to two decimals. Sums go through
// decimal arithmetic so that Capital at Risk is exactly the sum of critical
// loan amounts.
package domain
