// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/access"
	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/logger"
)

/*
The teaching staff directory joins G3 staff records with the CIMS job
descriptions. No connection spans both targets, so both sides are fetched in
full and joined in memory with a nested loop, O(n*m). The caller's filter is
applied afterwards to the projected rows, not to the source columns.
*/

const staffQuery = "SELECT ts.Faculty_ID, ts.FirstName, ts.MiddleName, ts.LastName, ts.Email, " +
	"s.Discipline_name, s.Designation, s.Room_number, s.Building, c.Work, p.Home, p.Emergency " +
	"FROM Teaching_staff ts " +
	"JOIN Specialization s ON ts.Faculty_ID = s.Faculty_ID " +
	"JOIN T_contact c ON ts.Faculty_ID = c.Faculty_ID " +
	"JOIN Phone p ON c.Work = p.Work"

const jobDescriptionQuery = "SELECT * FROM G3_job_desc"

// the columns both sides are joined on
var staffJoinColumns = []string{"Discipline_name", "Designation", "Room_number", "Building"}

// StaffRow is one projected row of the teaching staff directory
type StaffRow struct {
	Name              string      `json:"Name"`
	FacultyID         interface{} `json:"Faculty_ID"`
	Designation       interface{} `json:"Designation"`
	Email             interface{} `json:"Email"`
	DisciplineSection interface{} `json:"Discipline_Section"`
	Work              interface{} `json:"Work"`
	HomeEmerg         string      `json:"Home_Emerg"`
	Office            string      `json:"Office"`
}

// Field returns a projected field by its output name
func (s StaffRow) Field(name string) (interface{}, bool) {
	switch name {
	case "Name":
		return s.Name, true
	case "Faculty_ID":
		return s.FacultyID, true
	case "Designation":
		return s.Designation, true
	case "Email":
		return s.Email, true
	case "Discipline_Section":
		return s.DisciplineSection, true
	case "Work":
		return s.Work, true
	case "Home_Emerg":
		return s.HomeEmerg, true
	case "Office":
		return s.Office, true
	}
	return nil, false
}

// TeachingStaffResult is the response of the teaching staff search
type TeachingStaffResult struct {
	Results []StaffRow `json:"results"`
}

// stringify formats a value for display and filtering. nil is the empty string.
func stringify(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// sameValue compares two join keys. Numbers compare numerically whatever their
// width, any other value only equals a value of the same type.
func sameValue(a, b interface{}) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return false
}

func number(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func fullName(parts ...interface{}) string {
	names := []string{}
	for _, part := range parts {
		if s := stringify(part); s != "" {
			names = append(names, s)
		}
	}
	return strings.Join(names, " ")
}

// JoinTeachingStaff joins the G3 staff rows with the CIMS job descriptions on
// discipline, designation, room number and building, and projects every matching
// pair. The result preserves the order of the G3 rows, then of the CIMS rows.
func JoinTeachingStaff(g3, cims []csql.Row) []StaffRow {
	result := []StaffRow{}
	for _, staff := range g3 {
		for _, job := range cims {
			match := true
			for _, column := range staffJoinColumns {
				if !sameValue(staff[column], job[column]) {
					match = false
					break
				}
			}
			if !match {
				continue
			}
			result = append(result, StaffRow{
				Name:              fullName(staff["FirstName"], staff["MiddleName"], staff["LastName"]),
				FacultyID:         staff["Faculty_ID"],
				Designation:       job["Designation"],
				Email:             staff["Email"],
				DisciplineSection: job["Discipline_name"],
				Work:              staff["Work"],
				HomeEmerg:         stringify(staff["Home"]) + "/" + stringify(staff["Emergency"]),
				Office:            stringify(job["Building"]) + "/" + stringify(job["Room_number"]),
			})
		}
	}
	return result
}

// FilterProjected keeps the rows where every filter value is a case-insensitive
// substring of the projected field of the same name. A filter naming a field which
// is not projected, or carrying a nil value, excludes every row.
func FilterProjected(rows []StaffRow, filters Attributes) []StaffRow {
	result := []StaffRow{}
	for _, row := range rows {
		match := true
		for _, filter := range filters {
			value, ok := row.Field(filter.Column)
			if !ok || filter.Value == nil || !strings.Contains(strings.ToLower(stringify(value)), strings.ToLower(stringify(filter.Value))) {
				match = false
				break
			}
		}
		if match {
			result = append(result, row)
		}
	}
	return result
}

// fetch acquires the target, runs the query and releases the connection
func (g *Gateway) fetch(ctx context.Context, target csql.Target, query string) ([]csql.Row, error) {
	h, err := g.provider.Acquire(ctx, target)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return h.Query(ctx, query)
}

// TeachingStaff returns the teaching staff directory, filtered by the projected
// fields. Failures on either target are reported as KindOperationFailed.
func (g *Gateway) TeachingStaff(ctx context.Context, auth *access.Authorization, filters Attributes) (*TeachingStaffResult, error) {
	if err := g.authorize(ctx, auth, core.OperationJoin); err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, &Error{Kind: KindBadRequest, Message: "attributes_like must be a non-empty dictionary"}
	}
	for _, filter := range filters {
		if _, ok := filter.Value.(string); !ok {
			return nil, &Error{Kind: KindBadRequest, Message: "attributes_like values must be strings",
				Details: fmt.Sprintf("attribute %s", filter.Column)}
		}
	}
	rlog := logger.FromContext(ctx)

	staff, err := g.fetch(ctx, csql.TargetG3, staffQuery)
	if err != nil {
		rlog.WithError(err).Errorf("Error 5740: cannot fetch teaching staff from %s", csql.TargetG3)
		return nil, executionFailed("Search failed", "", err)
	}
	jobs, err := g.fetch(ctx, csql.TargetCIMS, jobDescriptionQuery)
	if err != nil {
		rlog.WithError(err).Errorf("Error 5741: cannot fetch job descriptions from %s", csql.TargetCIMS)
		return nil, executionFailed("Search failed", "", err)
	}

	joined := JoinTeachingStaff(staff, jobs)
	results := FilterProjected(joined, filters)
	rlog.Debugf("teaching staff join: %d x %d rows, %d joined, %d after filter", len(staff), len(jobs), len(joined), len(results))
	return &TeachingStaffResult{Results: results}, nil
}

func (g *Gateway) handleTeachingStaff(w http.ResponseWriter, r *http.Request) {
	auth, err := g.beginRequest(r, core.OperationJoin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var request SearchRequest
	if err = g.decodeRequest(r, searchSchemaID, searchBadRequest, &request); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := g.requestContext(r)
	defer cancel()
	result, err := g.TeachingStaff(ctx, auth, request.AttributesLike)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
