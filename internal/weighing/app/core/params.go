package core

import "time"

type ServiceParams struct {
	Port       int
	ConfigPath string
}

const (
	// in seconds for shutdown and request handling
	WaitTime = 20

	OPLength        = 7
	MaxOP           = 9999999
	BinNumberLength = 8
	MaxBinsPerOrder = 2
	TareDecimals    = 3
)

// Device store keys.
const (
	KeyOrders      = "orders"
	KeyExcipients  = "excipients"
	KeyOrderFilter = "order_filter"
	KeyBins        = "bins"
	KeyTheme       = "theme"
)

const (
	BinCleanTitle     = "Bin cleaning finished"
	BinCleanBodyFmt   = "Bin %s is clean and available."
	DefaultTickPeriod = time.Second
)

// AutomaticMaterials are dosed by the automatic line rather than weighed by hand.
var AutomaticMaterials = map[string]bool{
	"LACTOSE (200)":                  true,
	"LACTOSE (50/70)":                true,
	"AMIDO DE MILHO PREGELATINIZADO": true,
	"CELULOSE MIC (TIPO200)":         true,
	"CELULOSE MIC.(TIPO102)":         true,
	"FOSF.CAL.DIB.(COMPDIRETA)":      true,
	"AMIDO":                          true,
	"CELULOSE+LACTOSE":               true,
}

// AutomaticMarker flags materials the backend labels as automatic.
const AutomaticMarker = "Automática"

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)
