package pompeii

import (
	"fmt"
	"testing"
)

func TestArenaReleasesInReverse(t *testing.T) {
	order := []int{}
	a := Arena{}
	for i := 0; i < 4; i++ {
		i := i
		a.Track(DestroyFunc(func() { order = append(order, i) }))
	}
	if a.Len() != 4 {
		t.Fatalf("expected 4 tracked, got %d", a.Len())
	}

	a.Release()
	if fmt.Sprint(order) != fmt.Sprint([]int{3, 2, 1, 0}) {
		t.Errorf("unexpected release order %v", order)
	}
	if a.Len() != 0 {
		t.Errorf("arena not emptied")
	}

	a.Release()
	if len(order) != 4 {
		t.Errorf("second release destroyed again: %v", order)
	}
}

func TestArenaReuse(t *testing.T) {
	count := 0
	a := Arena{}
	a.Track(DestroyFunc(func() { count++ }))
	a.Release()
	a.Track(DestroyFunc(func() { count += 10 }))
	a.Release()
	if count != 11 {
		t.Errorf("expected 11, got %d", count)
	}
}

func TestVkString(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"", "\x00"},
		{"VK_KHR_swapchain", "VK_KHR_swapchain\x00"},
		{"done\x00", "done\x00"},
	}
	for _, test := range tests {
		if got := vkString(test.in); got != test.out {
			t.Errorf("vkString(%q) = %q", test.in, got)
		}
	}
}
