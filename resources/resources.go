package resources

import (
	_ "embed"
)

//go:embed country_to_continent.json
var CountryToContinentJSON []byte
