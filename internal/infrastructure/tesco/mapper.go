package tesco

import "github.com/trolleywise/backend/internal/domain"

// Wire types for the shopping-experience GraphQL response. The request is
// sent as a single-element batch, so the top level is an array. Every field
// below is treated as fixed external contract; anything absent maps to nil
// on the candidate, never to an error.

type searchResponse []struct {
	Data struct {
		Search struct {
			PageInformation *pageInformation `json:"pageInformation"`
			Results         []resultEntry    `json:"results"`
		} `json:"search"`
	} `json:"data"`
}

type pageInformation struct {
	TotalCount int `json:"totalCount"`
	PageNo     int `json:"pageNo"`
	Count      int `json:"count"`
}

type resultEntry struct {
	Node productNode `json:"node"`
}

type productNode struct {
	GTIN                *string `json:"gtin"`
	Title               string  `json:"title"`
	BrandName           *string `json:"brandName"`
	SuperDepartmentName *string `json:"superDepartmentName"`
	DepartmentName      *string `json:"departmentName"`
	AisleName           *string `json:"aisleName"`
	ShelfName           *string `json:"shelfName"`
	Reviews             *struct {
		Stats *struct {
			OverallRating *float64 `json:"overallRating"`
		} `json:"stats"`
	} `json:"reviews"`
}

// toCandidate maps one product node onto the domain record. The rating sits
// behind a nested optional path; a missing link anywhere along it yields a
// nil rating.
func (n productNode) toCandidate() domain.CandidateRecord {
	record := domain.CandidateRecord{
		MatchedName: n.Title,
		Barcode:     n.GTIN,
		Brand:       n.BrandName,
		Category1:   n.SuperDepartmentName,
		Category2:   n.DepartmentName,
		Category3:   n.AisleName,
		Category4:   n.ShelfName,
	}

	if n.Reviews != nil && n.Reviews.Stats != nil {
		record.Rating = n.Reviews.Stats.OverallRating
	}

	return record
}
