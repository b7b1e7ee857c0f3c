package registry

import (
	"fmt"
)

// ResolvedAsset is an AssetData with its name references looked up.
type ResolvedAsset struct {
	ObjectPath  string `json:"object_path" yaml:"object_path"`
	PackagePath string `json:"package_path" yaml:"package_path"`
	AssetClass  string `json:"asset_class" yaml:"asset_class"`
	PackageName string `json:"package_name" yaml:"package_name"`
	AssetName   string `json:"asset_name" yaml:"asset_name"`

	Data *AssetData `json:"-" yaml:"-"`
}

// Name returns the name table entry i refers to. The instance number is not applied.
func (reg *Registry) Name(i FlaggedIndex) (string, error) {
	if uint64(i.Index) >= uint64(len(reg.Names)) {
		return "", fmt.Errorf("%w: %v of %v names", ErrIndexRange, i.Index, len(reg.Names))
	}
	return reg.Names[i.Index], nil
}

// ResolveAssetData looks up every name a refers to.
// The returned ResolvedAsset points at a, so mutating through Data mutates the caller's value.
func (reg *Registry) ResolveAssetData(a *AssetData) (ResolvedAsset, error) {
	resolved := ResolvedAsset{Data: a}
	for _, field := range []struct {
		dst *string
		idx FlaggedIndex
	}{
		{&resolved.ObjectPath, a.ObjectPath},
		{&resolved.PackagePath, a.PackagePath},
		{&resolved.AssetClass, a.AssetClass},
		{&resolved.PackageName, a.PackageName},
		{&resolved.AssetName, a.AssetName},
	} {
		name, err := reg.Name(field.idx)
		if err != nil {
			return ResolvedAsset{}, err
		}
		*field.dst = name
	}
	return resolved, nil
}

// AssetsOfClass returns every asset data record whose class name is class, in registry order.
// An empty class matches every record.
func (reg *Registry) AssetsOfClass(class string) ([]ResolvedAsset, error) {
	var assets []ResolvedAsset
	for i := range reg.AssetData {
		resolved, err := reg.ResolveAssetData(&reg.AssetData[i])
		if err != nil {
			return nil, fmt.Errorf("asset data %v: %w", i, err)
		}
		if class == "" || resolved.AssetClass == class {
			assets = append(assets, resolved)
		}
	}
	return assets, nil
}
