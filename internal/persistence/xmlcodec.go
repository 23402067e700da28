/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package persistence

import (
	"bytes"
	"encoding/xml"

	"aviary/internal/model"
)

// Document layout:
//
//	<birds>
//	  <bird name="Robin" color="Red" weight="0.08" height="0.25"/>
//	</birds>
//
//	<sightings>
//	  <bird name="Robin">
//	    <sighting location="Park" date="2024-06-01T10:30:00Z"/>
//	  </bird>
//	</sightings>

type xmlBirds struct {
	XMLName xml.Name  `xml:"birds"`
	Birds   []xmlBird `xml:"bird"`
}

type xmlBird struct {
	Name   string `xml:"name,attr"`
	Color  string `xml:"color,attr"`
	Weight string `xml:"weight,attr"`
	Height string `xml:"height,attr"`
}

type xmlSightings struct {
	XMLName xml.Name          `xml:"sightings"`
	Birds   []xmlSightingBird `xml:"bird"`
}

type xmlSightingBird struct {
	Name      string        `xml:"name,attr"`
	Sightings []xmlSighting `xml:"sighting"`
}

type xmlSighting struct {
	Location string `xml:"location,attr"`
	Date     string `xml:"date,attr,omitempty"`
}

// encodeXML renders birds into the two documents.
func encodeXML(birds []*model.Bird) (birdsDoc, sightingsDoc []byte, err error) {
	bd := xmlBirds{Birds: make([]xmlBird, 0, len(birds))}
	sd := xmlSightings{}

	for _, b := range birds {
		if b == nil {
			continue
		}
		bd.Birds = append(bd.Birds, xmlBird{
			Name:   b.Name,
			Color:  b.Color,
			Weight: formatMeasure(b.Weight),
			Height: formatMeasure(b.Height),
		})
		if len(b.Sightings) == 0 {
			continue
		}
		sb := xmlSightingBird{Name: b.Name, Sightings: make([]xmlSighting, 0, len(b.Sightings))}
		for _, s := range b.Sightings {
			sb.Sightings = append(sb.Sightings, xmlSighting{
				Location: s.Location,
				Date:     formatTimestamp(s.Timestamp),
			})
		}
		sd.Birds = append(sd.Birds, sb)
	}

	if birdsDoc, err = marshalDocument(bd); err != nil {
		return nil, nil, err
	}
	if sightingsDoc, err = marshalDocument(sd); err != nil {
		return nil, nil, err
	}
	return birdsDoc, sightingsDoc, nil
}

func marshalDocument(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// decodeXML rebuilds the table from the two documents. Empty documents
// mean an empty table.
func decodeXML(backend string, birdsDoc, sightingsDoc []byte) ([]*model.Bird, error) {
	tb := newTableBuilder(backend)

	if len(bytes.TrimSpace(birdsDoc)) > 0 {
		var bd xmlBirds
		if err := xml.Unmarshal(birdsDoc, &bd); err != nil {
			return nil, err
		}
		for _, b := range bd.Birds {
			tb.addBird(b.Name, b.Color,
				parseMeasure(backend, b.Name, "weight", b.Weight),
				parseMeasure(backend, b.Name, "height", b.Height))
		}
	}

	if len(bytes.TrimSpace(sightingsDoc)) > 0 {
		var sd xmlSightings
		if err := xml.Unmarshal(sightingsDoc, &sd); err != nil {
			return nil, err
		}
		for _, sb := range sd.Birds {
			for _, s := range sb.Sightings {
				tb.addSighting(sb.Name, s.Location, parseTimestamp(backend, sb.Name, s.Date))
			}
		}
	}

	return tb.result(), nil
}
