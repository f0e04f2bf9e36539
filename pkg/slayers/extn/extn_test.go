// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionproto/scion-extn/pkg/slayers/extn"
)

func TestClassKind(t *testing.T) {
	assert.Equal(t, extn.KindHopByHop, extn.HopByHopClass.Kind())
	assert.Equal(t, extn.KindEnd2End, extn.End2EndClass.Kind())
	for _, c := range []extn.Class{extn.L4SCMP, extn.L4TCP, extn.L4UDP, 221, 223, 255} {
		assert.Equal(t, extn.KindTerminator, c.Kind(), c.String())
		assert.False(t, c.IsExtension(), c.String())
	}
}

func TestParseClass(t *testing.T) {
	testCases := map[string]struct {
		Input          string
		Expected       extn.Class
		ErrorAssertion require.ErrorAssertionFunc
	}{
		"hbh":        {Input: "hbh", Expected: extn.HopByHopClass, ErrorAssertion: require.NoError},
		"long hbh":   {Input: "HOP_BY_HOP", Expected: extn.HopByHopClass, ErrorAssertion: require.NoError},
		"e2e":        {Input: "e2e", Expected: extn.End2EndClass, ErrorAssertion: require.NoError},
		"long e2e":   {Input: "end_to_end", Expected: extn.End2EndClass, ErrorAssertion: require.NoError},
		"numeric":    {Input: "222", Expected: extn.End2EndClass, ErrorAssertion: require.NoError},
		"l4":         {Input: "17", Expected: extn.L4UDP, ErrorAssertion: require.NoError},
		"too large":  {Input: "256", ErrorAssertion: require.Error},
		"negative":   {Input: "-1", ErrorAssertion: require.Error},
		"empty":      {Input: "", ErrorAssertion: require.Error},
		"wrong name": {Input: "udp", ErrorAssertion: require.Error},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			c, err := extn.ParseClass(tc.Input)
			tc.ErrorAssertion(t, err)
			assert.Equal(t, tc.Expected, c)
		})
	}
}

func TestExtnTypeString(t *testing.T) {
	testCases := map[extn.ExtnType]string{
		extn.ExtnTraceroute: "hbh:traceroute",
		extn.ExtnSIBRA:      "hbh:sibra",
		extn.ExtnPathTrans:  "e2e:path_transport",
		extn.ExtnPathProbe:  "e2e:path_probe",
		{Class: extn.End2EndClass, Type: 7}: "e2e:7",
		{Class: extn.L4UDP, Type: 1}:        "17:1",
	}
	for e, expected := range testCases {
		t.Run(expected, func(t *testing.T) {
			assert.Equal(t, expected, e.String())
			parsed, err := extn.ParseExtnType(expected)
			require.NoError(t, err)
			assert.Equal(t, e, parsed)
		})
	}
}

func TestParseExtnType(t *testing.T) {
	testCases := map[string]struct {
		Input          string
		Expected       extn.ExtnType
		ErrorAssertion require.ErrorAssertionFunc
	}{
		"name is class local": {
			Input:          "e2e:sibra",
			ErrorAssertion: require.Error,
		},
		"case insensitive": {
			Input:          "HBH:Traceroute",
			Expected:       extn.ExtnTraceroute,
			ErrorAssertion: require.NoError,
		},
		"numeric class and type": {
			Input:          "0:1",
			Expected:       extn.ExtnSIBRA,
			ErrorAssertion: require.NoError,
		},
		"missing separator": {
			Input:          "traceroute",
			ErrorAssertion: require.Error,
		},
		"bad class": {
			Input:          "foo:1",
			ErrorAssertion: require.Error,
		},
		"type out of range": {
			Input:          "hbh:300",
			ErrorAssertion: require.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			e, err := extn.ParseExtnType(tc.Input)
			tc.ErrorAssertion(t, err)
			assert.Equal(t, tc.Expected, e)
		})
	}
}

func TestExtnTypeText(t *testing.T) {
	b, err := extn.ExtnPathProbe.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "e2e:path_probe", string(b))

	var e extn.ExtnType
	require.NoError(t, e.UnmarshalText([]byte("hbh:sibra")))
	assert.Equal(t, extn.ExtnSIBRA, e)
	assert.Error(t, e.UnmarshalText([]byte("hbh")))
	assert.Equal(t, extn.ExtnSIBRA, e, "failed unmarshal must not modify the value")
}
