package search

// Bisect searches the inclusive index range [low, high] of an implicit sequence whose
// compare results are non-decreasing in sign as the index grows.
//
// With preferFirst it returns the first index comparing zero, otherwise the first index
// past the run of zero comparisons. When nothing compares zero both modes return the
// index of the first positive comparison, or high+1 if there is none.
func Bisect(low int, high int, preferFirst bool, compare func(index int) int) int {
	lo := low
	hi := high + 1
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		result := compare(mid)
		if result < 0 || (!preferFirst && result == 0) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
