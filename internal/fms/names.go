package fms

// ServiceName ports fms_disp_service_id's BOS-Kennung table.
func ServiceName(serviceID uint8) string {
	names := [16]string{
		"UNKNOWN", "POLIZEI", "BGS", "BKA", "KatS", "ZOLL", "Feuerwehr", "THW",
		"ASB", "Rotkreuz", "Johanniter", "Malteser", "DLRG", "Rettungsdienst",
		"ZivilSchutz", "FernWirk",
	}
	return names[serviceID&0xF]
}

// StateName ports fms_disp_state_id's Landeskennung table. States 0xE
// and 0xF are ambiguous in the TR-BOS table and resolved by locID, the
// same way fms_disp_state_id does it.
func StateName(stateID, locID uint8) string {
	switch stateID & 0xF {
	case 0x0:
		return "Sachsen"
	case 0x1:
		return "Bund"
	case 0x2:
		return "Baden-Wurtemberg"
	case 0x3:
		return "Bayern 1"
	case 0x4:
		return "Berlin"
	case 0x5:
		return "Bremen"
	case 0x6:
		return "Hamburg"
	case 0x7:
		return "Hessen"
	case 0x8:
		return "Niedersachsen"
	case 0x9:
		return "Nordrhein-Wesfal"
	case 0xa:
		return "Rheinland-Pfalz"
	case 0xb:
		return "Schleswig-Holste"
	case 0xc:
		return "Saarland"
	case 0xd:
		return "Bayern 2"
	case 0xe:
		if locID < 50 {
			return "Meckl-Vorpommern"
		}
		return "Sachsen-Anhalt"
	default: // 0xf
		if locID < 50 {
			return "Brandenburg"
		}
		return "Thuringen"
	}
}

// StatusName ports fms_disp_state's two direction-dependent tables.
func StatusName(status, direction uint8) string {
	if direction == 0 {
		names := [16]string{
			"Notfall", "Einbuchen", "Bereit Wache", "Einsatz Ab",
			"Am EinsatzZiel", "Sprechwunsch", "Nicht Bereit", "Patient aufgen",
			"Am TranspZiel", "Arzt Aufgenomm", "Vorbertg Folge", "Beendig Folge",
			"Sonder 1", "Sonder 2", "AutomatQuittun", "Sprechtaste",
		}
		return names[status&0xF]
	}
	names := [16]string{
		"StatusAbfrage", "SammelRuf", "Einrucken/Abbr", "Ubernahme",
		"Kommen Draht", "Fahre Wache", "Sprechaufford", "Lagemeldung",
		"FernWirk 1", "FernWirk 2", "Vorbertg TXT", "Beendig TXT",
		"KurzTXT C", "KurzTXT D", "KurzTXT E", "AutomatQuittun",
	}
	return names[status&0xF]
}

// ShortInfoName ports fms_disp_shortinfo's taktische Kurzinformation
// table.
func ShortInfoName(shortInfo uint8) string {
	names := [4]string{
		"I  (ohneNA,ohneSIGNAL)", "II (ohneNA,mit SIGNAL)",
		"III(mit NA,ohneSIGNAL)", "IV (mit NA,mit SIGNAL)",
	}
	return names[shortInfo&0x3]
}
