package platform

import (
	"testing"
)

func TestDetectFacets_Hashtags(t *testing.T) {
	t.Parallel()

	facets := detectFacets("Good DX today #SolarScout #HamRadio")
	if len(facets) != 2 {
		t.Fatalf("got %d facets, want 2", len(facets))
	}

	first := facets[0]
	if first.Index.ByteStart != 14 || first.Index.ByteEnd != 25 {
		t.Errorf("first facet bytes = [%d,%d), want [14,25)", first.Index.ByteStart, first.Index.ByteEnd)
	}
	if tag := first.Features[0].RichtextFacet_Tag; tag == nil || tag.Tag != "SolarScout" {
		t.Errorf("first facet tag = %+v, want SolarScout without the #", tag)
	}
	if tag := facets[1].Features[0].RichtextFacet_Tag; tag == nil || tag.Tag != "HamRadio" {
		t.Errorf("second facet tag = %+v, want HamRadio", tag)
	}
}

func TestDetectFacets_ByteOffsetsWithEmoji(t *testing.T) {
	t.Parallel()

	facets := detectFacets("☀️ #wx")
	if len(facets) != 1 {
		t.Fatalf("got %d facets, want 1", len(facets))
	}
	// "☀" is 3 bytes, the variation selector 3 more, plus the space.
	if facets[0].Index.ByteStart != 7 {
		t.Errorf("facet starts at byte %d, want 7", facets[0].Index.ByteStart)
	}
}

func TestDetectFacets_Links(t *testing.T) {
	t.Parallel()

	facets := detectFacets("Data from https://services.swpc.noaa.gov today")
	if len(facets) != 1 {
		t.Fatalf("got %d facets, want 1", len(facets))
	}
	link := facets[0].Features[0].RichtextFacet_Link
	if link == nil || link.Uri != "https://services.swpc.noaa.gov" {
		t.Errorf("facet link = %+v, want the SWPC URL", link)
	}
}

func TestDetectFacets_PlainText(t *testing.T) {
	t.Parallel()

	if facets := detectFacets("no tags or links here"); facets != nil {
		t.Errorf("got %d facets for plain text, want none", len(facets))
	}
}
