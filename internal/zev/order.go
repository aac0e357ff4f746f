package zev

// CompareNames orders event names the way the event table is stored:
// byte by byte, each name implicitly zero terminated, so a strict prefix
// sorts before any longer name.
func CompareNames(a, b string) int {
	for i := 0; ; i++ {
		ca, cb := nameByte(a, i), nameByte(b, i)
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		if ca == 0 {
			return 0
		}
	}
}

func nameByte(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}
