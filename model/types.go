package model

import (
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const TesURIKey = "tes_uri"

type ResourceRequirements struct {
	CPUCores         int      `json:"cpu_cores"`
	RAMGb            float64  `json:"ram_gb"`
	DiskGb           float64  `json:"disk_gb"`
	ExecutionTimeSec int      `json:"execution_time_sec"`
	Preemptible      *bool    `json:"preemptible,omitempty"`
	Zones            []string `json:"zones,omitempty"`
}

func (r ResourceRequirements) Validate() error {
	if r.CPUCores < 1 {
		return NewValidationError("Invalid 'cpu_cores' value passed: '%d'.", r.CPUCores)
	}

	if r.RAMGb <= 0 {
		return NewValidationError("Invalid 'ram_gb' value passed: '%g'.", r.RAMGb)
	}

	if r.DiskGb < 0 {
		return NewValidationError("Invalid 'disk_gb' value passed: '%g'.", r.DiskGb)
	}

	if r.ExecutionTimeSec < 0 {
		return NewValidationError("Invalid 'execution_time_sec' value passed: '%d'.", r.ExecutionTimeSec)
	}

	return nil
}

type Costs struct {
	Amount   float64  `json:"amount"`
	Currency Currency `json:"currency"`
}

// UnsetCosts marks a cost that has not been estimated.
var UnsetCosts = Costs{Amount: -1, Currency: BTC}

var ErrMissingQueueTime = errors.New("missing estimated_queue_time_sec")

type TaskInfo struct {
	EstimatedComputeCosts Costs
	EstimatedStorageCosts Costs
	UnitCostsDataTransfer Costs
	EstimatedQueueTime    Duration
}

// taskInfoWire is the task info body. The queue time is sent as seconds in
// estimated_queue_time_sec; some instances report {duration, unit} instead.
type taskInfoWire struct {
	EstimatedComputeCosts Costs     `json:"estimated_compute_costs"`
	EstimatedStorageCosts Costs     `json:"estimated_storage_costs"`
	UnitCostsDataTransfer Costs     `json:"unit_costs_data_transfer"`
	EstimatedQueueTimeSec *float64  `json:"estimated_queue_time_sec,omitempty"`
	EstimatedQueueTime    *Duration `json:"estimated_queue_time,omitempty"`
}

func (t TaskInfo) MarshalJSON() ([]byte, error) {
	seconds, err := t.EstimatedQueueTime.Seconds()
	if err != nil {
		return nil, err
	}

	//nolint:wrapcheck
	return json.Marshal(taskInfoWire{
		EstimatedComputeCosts: t.EstimatedComputeCosts,
		EstimatedStorageCosts: t.EstimatedStorageCosts,
		UnitCostsDataTransfer: t.UnitCostsDataTransfer,
		EstimatedQueueTimeSec: &seconds,
	})
}

func (t *TaskInfo) UnmarshalJSON(data []byte) error {
	wire := taskInfoWire{}
	if err := json.Unmarshal(data, &wire); err != nil {
		//nolint:wrapcheck
		return err
	}

	var queue Duration

	switch {
	case wire.EstimatedQueueTimeSec != nil:
		queue = Duration{Duration: *wire.EstimatedQueueTimeSec, Unit: Seconds}
	case wire.EstimatedQueueTime != nil:
		queue = *wire.EstimatedQueueTime
	default:
		return ErrMissingQueueTime
	}

	*t = TaskInfo{
		EstimatedComputeCosts: wire.EstimatedComputeCosts,
		EstimatedStorageCosts: wire.EstimatedStorageCosts,
		UnitCostsDataTransfer: wire.UnitCostsDataTransfer,
		EstimatedQueueTime:    queue,
	}

	return nil
}

type Checksum struct {
	Checksum string       `json:"checksum"`
	Type     ChecksumType `json:"type"`
}

type AccessURL struct {
	URL     string   `json:"url"`
	Headers []string `json:"headers,omitempty"`
}

type AccessMethod struct {
	Type      AccessMethodType `json:"type"`
	AccessURL *AccessURL       `json:"access_url,omitempty"`
	AccessID  string           `json:"access_id,omitempty"`
	Region    string           `json:"region,omitempty"`
}

type DrsObject struct {
	ID            string         `json:"id"`
	Name          string         `json:"name,omitempty"`
	SelfURI       string         `json:"self_uri,omitempty"`
	Size          int64          `json:"size"`
	CreatedTime   string         `json:"created_time,omitempty"`
	MimeType      string         `json:"mime_type,omitempty"`
	Description   string         `json:"description,omitempty"`
	Aliases       []string       `json:"aliases,omitempty"`
	Checksums     []Checksum     `json:"checksums"`
	AccessMethods []AccessMethod `json:"access_methods"`
}

// ObjectCatalog maps object id to storage endpoint URI to the object descriptor served there.
type ObjectCatalog map[string]map[string]DrsObject

// AccessURIs is one execution endpoint plus one access URL per required object.
type AccessURIs struct {
	TesURI  string
	Objects map[string]string
}

func (a AccessURIs) ObjectIDs() []string {
	ids := maps.Keys(a.Objects)
	slices.Sort(ids)
	return ids
}

func (a AccessURIs) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(a.Objects)+1)
	for id, url := range a.Objects {
		flat[id] = url
	}

	flat[TesURIKey] = a.TesURI

	//nolint:wrapcheck
	return json.Marshal(flat)
}

func (a *AccessURIs) UnmarshalJSON(data []byte) error {
	flat := make(map[string]string)
	if err := json.Unmarshal(data, &flat); err != nil {
		return errors.Wrap(err, "cannot unmarshal access uris")
	}

	tesURI, ok := flat[TesURIKey]
	if !ok {
		return errors.New("access uris do not contain tes_uri")
	}

	delete(flat, TesURIKey)
	a.TesURI = tesURI
	a.Objects = flat
	return nil
}

type ServiceCombination struct {
	AccessURIs   AccessURIs `json:"access_uris"`
	CostEstimate Costs      `json:"cost_estimate"`
	TimeEstimate float64    `json:"time_estimate"`
	Rank         int        `json:"rank"`
}

func NewServiceCombination(uris AccessURIs) ServiceCombination {
	return ServiceCombination{
		AccessURIs:   uris,
		CostEstimate: UnsetCosts,
		TimeEstimate: -1,
		Rank:         -1,
	}
}

type Response struct {
	ServiceCombinations []ServiceCombination `json:"service_combinations"`
	Warnings            []string             `json:"warnings"`
}

type Location struct {
	IP        string  `json:"ip"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Continent string  `json:"continent"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IPPair is an unordered pair of IP addresses.
type IPPair struct {
	A string
	B string
}

func NewIPPair(a, b string) IPPair {
	if b < a {
		a, b = b, a
	}

	return IPPair{A: a, B: b}
}

func (p IPPair) Same() bool {
	return p.A == p.B
}

// DistanceTable holds geolocations and pairwise distances in kilometers.
type DistanceTable struct {
	Locations map[string]Location
	Distances map[IPPair]float64
}

func NewDistanceTable() *DistanceTable {
	return &DistanceTable{
		Locations: make(map[string]Location),
		Distances: make(map[IPPair]float64),
	}
}

// ExchangeRates holds units of a quoted currency per one unit of the target currency.
// A missing key means no rate is available.
type ExchangeRates map[Currency]float64
