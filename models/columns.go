package models

// Canonical dataset column names. Headers are matched after upper-casing,
// stripping accents and turning spaces into underscores, so "Más de 1 Mbps"
// and "MÁS_DE_1_MBPS" both resolve to ColHighSpeed.
const (
	ColLocality   = "CENTRO_POBLADO"
	ColOperator   = "EMPRESA_OPERADORA"
	ColDepartment = "DEPARTAMENTO"
	ColProvince   = "PROVINCIA"
	ColDistrict   = "DISTRITO"
	ColLatitude   = "LATITUD"
	ColLongitude  = "LONGITUD"
	Col2G         = "2G"
	Col3G         = "3G"
	Col4G         = "4G"
	Col5G         = "5G"
	ColHighSpeed  = "MAS_DE_1_MBPS"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	ColLocality, ColOperator, ColLatitude, ColLongitude,
	Col2G, Col3G, Col4G, Col5G,
}

// OptionalColumns are read when present and left empty otherwise.
var OptionalColumns = []string{
	ColDepartment, ColProvince, ColDistrict, ColHighSpeed,
}
