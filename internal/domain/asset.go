package domain

import (
	"fmt"
	"time"
)

// AssetClass categorizes a minted asset.
type AssetClass string

const (
	AssetClassRealEstate  AssetClass = "REAL_ESTATE"
	AssetClassVehicle     AssetClass = "VEHICLE"
	AssetClassJewelry     AssetClass = "JEWELRY"
	AssetClassCommodities AssetClass = "COMMODITIES"
	AssetClassAccessories AssetClass = "ACCESSORIES"
	AssetClassOther       AssetClass = "OTHER"
)

var assetClasses = map[AssetClass]struct{}{
	AssetClassRealEstate:  {},
	AssetClassVehicle:     {},
	AssetClassJewelry:     {},
	AssetClassCommodities: {},
	AssetClassAccessories: {},
	AssetClassOther:       {},
}

// ParseAssetClass validates a class name.
func ParseAssetClass(s string) (AssetClass, error) {
	c := AssetClass(s)
	if _, ok := assetClasses[c]; !ok {
		return "", fmt.Errorf("unknown asset class %q", s)
	}
	return c, nil
}

// Asset is the canonical record of a minted asset.
type Asset struct {
	ID          ID
	Holder      Identity
	Description string
	Price       uint64
	Class       AssetClass
	Listed      bool
	MintedAt    time.Time
}
