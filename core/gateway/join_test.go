// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/tablegate/core/csql"
)

func TestJoinTeachingStaff(t *testing.T) {
	g3 := []csql.Row{{
		"Discipline_name": "CS", "Designation": "Prof", "Room_number": "101", "Building": "B1",
		"FirstName": "A", "LastName": "B", "Faculty_ID": 1,
	}}
	cims := []csql.Row{{
		"Discipline_name": "CS", "Designation": "Prof", "Room_number": "101", "Building": "B1",
	}}

	joined := JoinTeachingStaff(g3, cims)
	require.Len(t, joined, 1)
	row := joined[0]
	assert.Equal(t, "A B", row.Name)
	assert.Equal(t, 1, row.FacultyID)
	assert.Equal(t, "Prof", row.Designation)
	assert.Equal(t, "CS", row.DisciplineSection)
	assert.Equal(t, "B1/101", row.Office)
	assert.Equal(t, "/", row.HomeEmerg)

	filtered := FilterProjected(joined, Attributes{{"Designation", "prof"}})
	assert.Len(t, filtered, 1)

	filtered = FilterProjected(joined, Attributes{{"Designation", "lecturer"}})
	assert.Len(t, filtered, 0)
}

func TestJoinRequiresAllFourColumns(t *testing.T) {
	base := csql.Row{"Discipline_name": "CS", "Designation": "Prof", "Room_number": "101", "Building": "B1"}
	for _, column := range staffJoinColumns {
		other := csql.Row{}
		for k, v := range base {
			other[k] = v
		}
		other[column] = "different"
		assert.Empty(t, JoinTeachingStaff([]csql.Row{base}, []csql.Row{other}), column)
	}
}

func TestJoinOrderAndProjection(t *testing.T) {
	key := csql.Row{"Discipline_name": "CS", "Designation": "Prof", "Room_number": "101", "Building": "B1"}
	withKey := func(extra csql.Row) csql.Row {
		row := csql.Row{}
		for k, v := range key {
			row[k] = v
		}
		for k, v := range extra {
			row[k] = v
		}
		return row
	}
	g3 := []csql.Row{
		withKey(csql.Row{"FirstName": "Ada", "MiddleName": nil, "LastName": "Lovelace", "Home": "1", "Emergency": "2", "Work": "w1"}),
		withKey(csql.Row{"FirstName": "Alan", "MiddleName": "", "LastName": "Turing", "Home": nil, "Emergency": "3"}),
	}
	cims := []csql.Row{withKey(nil), withKey(nil)}

	joined := JoinTeachingStaff(g3, cims)
	require.Len(t, joined, 4)
	assert.Equal(t, "Ada Lovelace", joined[0].Name)
	assert.Equal(t, "Ada Lovelace", joined[1].Name)
	assert.Equal(t, "Alan Turing", joined[2].Name)
	assert.Equal(t, "1/2", joined[0].HomeEmerg)
	assert.Equal(t, "/3", joined[2].HomeEmerg)
	assert.Equal(t, "w1", joined[0].Work)
}

func TestFilterProjected(t *testing.T) {
	rows := []StaffRow{
		{Name: "Ada Lovelace", FacultyID: int64(1), Designation: "Prof", Office: "B1/101"},
		{Name: "Alan Turing", FacultyID: int64(2), Designation: "Lecturer", Office: "B2/202"},
	}
	assert.Len(t, FilterProjected(rows, Attributes{{"Name", "LOVE"}}), 1)
	assert.Len(t, FilterProjected(rows, Attributes{{"Name", "a"}, {"Office", "b2"}}), 1)
	assert.Len(t, FilterProjected(rows, Attributes{{"Faculty_ID", int64(2)}}), 1)
	assert.Len(t, FilterProjected(rows, Attributes{{"Office", "/"}}), 2)
	// filters apply to projected fields, source columns are unknown
	assert.Len(t, FilterProjected(rows, Attributes{{"FirstName", "Ada"}}), 0)
	assert.Len(t, FilterProjected(rows, Attributes{{"Email", ""}}), 2)
	assert.Empty(t, FilterProjected(rows, Attributes{{"Name", nil}}))
}

func TestJoinKeysKeepTheirType(t *testing.T) {
	staff := csql.Row{"Discipline_name": "CS", "Designation": "Prof", "Room_number": int64(101), "Building": "B1"}
	text := csql.Row{"Discipline_name": "CS", "Designation": "Prof", "Room_number": "101", "Building": "B1"}
	wide := csql.Row{"Discipline_name": "CS", "Designation": "Prof", "Room_number": float64(101), "Building": "B1"}
	missing := csql.Row{"Discipline_name": "CS", "Designation": "Prof", "Room_number": nil, "Building": "B1"}

	assert.Empty(t, JoinTeachingStaff([]csql.Row{staff}, []csql.Row{text}))
	assert.Len(t, JoinTeachingStaff([]csql.Row{staff}, []csql.Row{wide}), 1)
	assert.Empty(t, JoinTeachingStaff([]csql.Row{staff}, []csql.Row{missing}))
	assert.Len(t, JoinTeachingStaff([]csql.Row{missing}, []csql.Row{missing}), 1)

	assert.True(t, sameValue(true, true))
	assert.False(t, sameValue(true, "true"))
	assert.False(t, sameValue([]byte("x"), []byte("x")))
}
