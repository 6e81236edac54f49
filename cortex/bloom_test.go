package cortex

import "testing"

func TestTagMaskDeterministic(t *testing.T) {
	a := TagMask("project/alpha")
	b := TagMask("project/alpha")
	if a != b {
		t.Fatal("TagMask is not deterministic")
	}
}

func TestTagMaskHierarchicalIsUnionOfSegments(t *testing.T) {
	combined := TagMask("project/alpha")
	want := singleTagMask("project") | singleTagMask("alpha")
	if combined != want {
		t.Fatalf("TagMask(\"project/alpha\") = %#x, want the union %#x", combined, want)
	}
}

func TestTagMaskColonSegmentsAlsoUnion(t *testing.T) {
	combined := TagMask("status:active")
	want := singleTagMask("status") | singleTagMask("active")
	if combined != want {
		t.Fatalf("got %#x, want %#x", combined, want)
	}
}

func TestTagMaskDistinctTagsUsuallyDiffer(t *testing.T) {
	if TagMask("alpha") == TagMask("beta") {
		t.Fatal("two unrelated tags collided (extremely unlikely, check the hash)")
	}
}
