package frame

// CCEIE returns the Configurator Connectivity Element advertised in beacons
// and probe responses by a proxy agent.
func CCEIE() []byte {
	return []byte{ElementIDVendor, 4, WFAOUI[0], WFAOUI[1], WFAOUI[2], OUITypeCCE}
}

// IsCCEIE reports whether ie is a Configurator Connectivity Element.
func IsCCEIE(ie []byte) bool {
	return len(ie) >= 6 &&
		ie[0] == ElementIDVendor && ie[1] >= 4 &&
		ie[2] == WFAOUI[0] && ie[3] == WFAOUI[1] && ie[4] == WFAOUI[2] &&
		ie[5] == OUITypeCCE
}
