package download

// geofabrikEntry locates a country extract on download.geofabrik.de.
type geofabrikEntry struct {
	continent string
	name      string
}

// geofabrikCountries maps ISO 3166-1 alpha-3 codes to Geofabrik extracts.
// Some extracts bundle several countries; those codes share an entry.
// Russia is split into RUS-A (Asia) and RUS-E (Europe); IC is the
// Canary Islands.
var geofabrikCountries = map[string]geofabrikEntry{
	// Africa
	"DZA": {"africa", "algeria"},
	"AGO": {"africa", "angola"},
	"BEN": {"africa", "benin"},
	"BWA": {"africa", "botswana"},
	"BFA": {"africa", "burkina-faso"},
	"BDI": {"africa", "burundi"},
	"CMR": {"africa", "cameroon"},
	"IC":  {"africa", "canary-islands"},
	"CPV": {"africa", "cape-verde"},
	"CAF": {"africa", "central-african-republic"},
	"TCD": {"africa", "chad"},
	"COM": {"africa", "comores"},
	"COG": {"africa", "congo-brazzaville"},
	"COD": {"africa", "congo-democratic-republic"},
	"DJI": {"africa", "djibouti"},
	"EGY": {"africa", "egypt"},
	"GNQ": {"africa", "equatorial-guinea"},
	"ERI": {"africa", "eritrea"},
	"ETH": {"africa", "ethiopia"},
	"GAB": {"africa", "gabon"},
	"GHA": {"africa", "ghana"},
	"GIN": {"africa", "guinea"},
	"GNB": {"africa", "guinea-bissau"},
	"CIV": {"africa", "ivory-coast"},
	"KEN": {"africa", "kenya"},
	"LSO": {"africa", "lesotho"},
	"LBR": {"africa", "liberia"},
	"LBY": {"africa", "libya"},
	"MDG": {"africa", "madagascar"},
	"MWI": {"africa", "malawi"},
	"MLI": {"africa", "mali"},
	"MRT": {"africa", "mauritania"},
	"MUS": {"africa", "mauritius"},
	"MAR": {"africa", "morocco"},
	"MOZ": {"africa", "mozambique"},
	"NAM": {"africa", "namibia"},
	"NER": {"africa", "niger"},
	"NGA": {"africa", "nigeria"},
	"RWA": {"africa", "rwanda"},
	"SHN": {"africa", "saint-helena-ascension-and-tristan-da-cunha"},
	"STP": {"africa", "sao-tome-and-principe"},
	"SEN": {"africa", "senegal-and-gambia"},
	"GMB": {"africa", "senegal-and-gambia"},
	"SYC": {"africa", "seychelles"},
	"SLE": {"africa", "sierra-leone"},
	"SOM": {"africa", "somalia"},
	"ZAF": {"africa", "south-africa"},
	"SSD": {"africa", "south-sudan"},
	"SDN": {"africa", "sudan"},
	"SWZ": {"africa", "swaziland"},
	"TZA": {"africa", "tanzania"},
	"TGO": {"africa", "togo"},
	"TUN": {"africa", "tunisia"},
	"UGA": {"africa", "uganda"},
	"ZMB": {"africa", "zambia"},
	"ZWE": {"africa", "zimbabwe"},

	// Asia
	"AFG":   {"asia", "afghanistan"},
	"ARM":   {"asia", "armenia"},
	"AZE":   {"asia", "azerbaijan"},
	"BGD":   {"asia", "bangladesh"},
	"BTN":   {"asia", "bhutan"},
	"KHM":   {"asia", "cambodia"},
	"CHN":   {"asia", "china"},
	"TLS":   {"asia", "east-timor"},
	"ARE":   {"asia", "gcc-states"},
	"BHR":   {"asia", "gcc-states"},
	"KWT":   {"asia", "gcc-states"},
	"OMN":   {"asia", "gcc-states"},
	"QAT":   {"asia", "gcc-states"},
	"SAU":   {"asia", "gcc-states"},
	"IND":   {"asia", "india"},
	"IDN":   {"asia", "indonesia"},
	"IRN":   {"asia", "iran"},
	"IRQ":   {"asia", "iraq"},
	"ISR":   {"asia", "israel-and-palestine"},
	"PSE":   {"asia", "israel-and-palestine"},
	"JPN":   {"asia", "japan"},
	"JOR":   {"asia", "jordan"},
	"KAZ":   {"asia", "kazakhstan"},
	"KGZ":   {"asia", "kyrgyzstan"},
	"LAO":   {"asia", "laos"},
	"LBN":   {"asia", "lebanon"},
	"MYS":   {"asia", "malaysia-singapore-brunei"},
	"SGP":   {"asia", "malaysia-singapore-brunei"},
	"BRN":   {"asia", "malaysia-singapore-brunei"},
	"MDV":   {"asia", "maldives"},
	"MNG":   {"asia", "mongolia"},
	"MMR":   {"asia", "myanmar"},
	"NPL":   {"asia", "nepal"},
	"PRK":   {"asia", "north-korea"},
	"PAK":   {"asia", "pakistan"},
	"PHL":   {"asia", "philippines"},
	"RUS-A": {"asia", "russia"},
	"KOR":   {"asia", "south-korea"},
	"LKA":   {"asia", "sri-lanka"},
	"SYR":   {"asia", "syria"},
	"TWN":   {"asia", "taiwan"},
	"TJK":   {"asia", "tajikistan"},
	"THA":   {"asia", "thailand"},
	"TKM":   {"asia", "turkmenistan"},
	"UZB":   {"asia", "uzbekistan"},
	"VNM":   {"asia", "vietnam"},
	"YEM":   {"asia", "yemen"},

	// Australia and Oceania
	"AUS": {"australia-oceania", "australia"},
	"COK": {"australia-oceania", "cook-islands"},
	"FJI": {"australia-oceania", "fiji"},
	"KIR": {"australia-oceania", "kiribati"},
	"MHL": {"australia-oceania", "marshall-islands"},
	"FSM": {"australia-oceania", "micronesia"},
	"NRU": {"australia-oceania", "nauru"},
	"NCL": {"australia-oceania", "new-caledonia"},
	"NZL": {"australia-oceania", "new-zealand"},
	"NIU": {"australia-oceania", "niue"},
	"PLW": {"australia-oceania", "palau"},
	"PNG": {"australia-oceania", "papua-new-guinea"},
	"PCN": {"australia-oceania", "pitcairn-islands"},
	"PYF": {"australia-oceania", "polynesie-francaise"},
	"WSM": {"australia-oceania", "samoa"},
	"SLB": {"australia-oceania", "solomon-islands"},
	"TON": {"australia-oceania", "tonga"},
	"TUV": {"australia-oceania", "tuvalu"},
	"VUT": {"australia-oceania", "vanuatu"},
	"WLF": {"australia-oceania", "wallis-et-futuna"},

	// Central America
	"BHS": {"central-america", "bahamas"},
	"BLZ": {"central-america", "belize"},
	"CRI": {"central-america", "costa-rica"},
	"CUB": {"central-america", "cuba"},
	"SLV": {"central-america", "el-salvador"},
	"GTM": {"central-america", "guatemala"},
	"HTI": {"central-america", "haiti-and-domrep"},
	"DOM": {"central-america", "haiti-and-domrep"},
	"HND": {"central-america", "honduras"},
	"JAM": {"central-america", "jamaica"},
	"NIC": {"central-america", "nicaragua"},
	"PAN": {"central-america", "panama"},

	// Europe
	"ALB":   {"europe", "albania"},
	"AND":   {"europe", "andorra"},
	"AUT":   {"europe", "austria"},
	"BLR":   {"europe", "belarus"},
	"BEL":   {"europe", "belgium"},
	"BIH":   {"europe", "bosnia-herzegovina"},
	"BGR":   {"europe", "bulgaria"},
	"HRV":   {"europe", "croatia"},
	"CYP":   {"europe", "cyprus"},
	"CZE":   {"europe", "czech-republic"},
	"DNK":   {"europe", "denmark"},
	"EST":   {"europe", "estonia"},
	"FRO":   {"europe", "faroe-islands"},
	"FIN":   {"europe", "finland"},
	"FRA":   {"europe", "france"},
	"GEO":   {"europe", "georgia"},
	"DEU":   {"europe", "germany"},
	"GBR":   {"europe", "great-britain"},
	"GRC":   {"europe", "greece"},
	"HUN":   {"europe", "hungary"},
	"ISL":   {"europe", "iceland"},
	"IRL":   {"europe", "ireland-and-northern-ireland"},
	"IMN":   {"europe", "isle-of-man"},
	"ITA":   {"europe", "italy"},
	"XKX":   {"europe", "kosovo"},
	"LVA":   {"europe", "latvia"},
	"LIE":   {"europe", "liechtenstein"},
	"LTU":   {"europe", "lithuania"},
	"LUX":   {"europe", "luxembourg"},
	"MKD":   {"europe", "macedonia"},
	"MLT":   {"europe", "malta"},
	"MDA":   {"europe", "moldova"},
	"MCO":   {"europe", "monaco"},
	"MNE":   {"europe", "montenegro"},
	"NLD":   {"europe", "netherlands"},
	"NOR":   {"europe", "norway"},
	"POL":   {"europe", "poland"},
	"PRT":   {"europe", "portugal"},
	"ROU":   {"europe", "romania"},
	"RUS-E": {"europe", "russia"},
	"SRB":   {"europe", "serbia"},
	"SVK":   {"europe", "slovakia"},
	"SVN":   {"europe", "slovenia"},
	"ESP":   {"europe", "spain"},
	"SWE":   {"europe", "sweden"},
	"CHE":   {"europe", "switzerland"},
	"TUR":   {"europe", "turkey"},
	"UKR":   {"europe", "ukraine"},

	// North America
	"CAN": {"north-america", "canada"},
	"GRL": {"north-america", "greenland"},
	"MEX": {"north-america", "mexico"},
	"USA": {"north-america", "us"},

	// South America
	"ARG": {"south-america", "argentina"},
	"BOL": {"south-america", "bolivia"},
	"BRA": {"south-america", "brazil"},
	"CHL": {"south-america", "chile"},
	"COL": {"south-america", "colombia"},
	"ECU": {"south-america", "ecuador"},
	"GUY": {"south-america", "guyana"},
	"PRY": {"south-america", "paraguay"},
	"PER": {"south-america", "peru"},
	"SUR": {"south-america", "suriname"},
	"URY": {"south-america", "uruguay"},
	"VEN": {"south-america", "venezuela"},
}
