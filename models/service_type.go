// models/service_type.go
package models

import "sort"

// ServiceType represents a type of service offered on the platform.
type ServiceType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`         // e.g., "Moving", "Cleaning"
	PricingUnit string `json:"pricing_unit"` // e.g., "Hour", "Volume"
	Description string `json:"description"`
}

const (
	ServiceMoving            = "moving"
	ServiceCleaning          = "cleaning"
	ServiceMovingCleaning    = "moving_cleaning"
	ServicePacking           = "packing"
	ServiceFurnitureAssembly = "furniture_assembly"
	ServiceStorage           = "storage"
)

var serviceCatalogue = map[string]ServiceType{
	ServiceMoving:            {ID: ServiceMoving, Name: "Moving", PricingUnit: "Volume", Description: "Household or office move"},
	ServiceCleaning:          {ID: ServiceCleaning, Name: "Cleaning", PricingUnit: "Hour", Description: "End of tenancy cleaning"},
	ServiceMovingCleaning:    {ID: ServiceMovingCleaning, Name: "Moving + Cleaning", PricingUnit: "Volume", Description: "Move followed by cleaning of the old home"},
	ServicePacking:           {ID: ServicePacking, Name: "Packing", PricingUnit: "Hour", Description: "Packing and unpacking"},
	ServiceFurnitureAssembly: {ID: ServiceFurnitureAssembly, Name: "Furniture assembly", PricingUnit: "Hour", Description: "Disassembly and reassembly of furniture"},
	ServiceStorage:           {ID: ServiceStorage, Name: "Storage", PricingUnit: "Month", Description: "Temporary furniture storage"},
}

// LookupServiceType returns the catalogue entry for id.
func LookupServiceType(id string) (ServiceType, bool) {
	st, ok := serviceCatalogue[id]
	return st, ok
}

func IsKnownServiceType(id string) bool {
	_, ok := serviceCatalogue[id]
	return ok
}

// ServiceTypeIDs lists the catalogue ids in a stable order.
func ServiceTypeIDs() []string {
	ids := make([]string, 0, len(serviceCatalogue))
	for id := range serviceCatalogue {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
