package jobs

var defaultPostings = []JobPosting{
	{
		Slug:    "daten-app-tests-remote",
		Title:   "Mitarbeiter*in (m/w/d) für digitale Daten- und App-Tests - Remote / Homeoffice",
		Summary: "Pruefung digitaler Anwendungen auf Funktion, Usability und Darstellungsqualitaet.",
		Tasks: []string{
			"Sie testen digitale Anwendungen systematisch und pruefen, ob Funktionen ordnungsgemaess und nutzerfreundlich umgesetzt sind.",
			"Sie fuehren Tests auf verschiedenen Geraeten, Bildschirmgroessen und Betriebssystemen durch.",
			"Sie dokumentieren Auffaelligkeiten strukturiert fuer Entwicklungs- und Beratungsteams.",
		},
		Profile: []string{
			"Sorgfaeltige und strukturierte Arbeitsweise, auch bei wiederkehrenden Ablaeufen.",
			"Klare, praezise und sachliche schriftliche Rueckmeldungen.",
			"Zuverlaessige Arbeitsweise im Homeoffice und stabile technische Grundausstattung.",
		},
		Offer: []string{
			"Vollstaendig remote mit flexibler Arbeitsgestaltung.",
			"Strukturierte Einarbeitung in Prozesse und Testverfahren.",
			"Transparente und respektvolle Zusammenarbeit im Team.",
		},
		Facts: Facts{
			Date:       "18.11.2025",
			Salary:     "603EUR p.M.",
			Employment: "Minijob",
			Experience: "keine noetig",
			Deadline:   "01.04.2026",
		},
	},
	{
		Slug:    "kundenservice-digital-projekte",
		Title:   "Mitarbeiter*in (m/w/d) Kundenservice fuer digitale Projekte",
		Summary: "Kommunikation mit Interessenten und Bestandskunden, Ticketbearbeitung und Qualitaetssicherung.",
		Tasks: []string{
			"Bearbeitung von Kundenanfragen per E-Mail und Telefon.",
			"Dokumentation von Anliegen und Weiterleitung an zuständige Teams.",
			"Nachverfolgung offener Faelle bis zur Loesung.",
		},
		Profile: []string{
			"Freundliches, verbindliches Auftreten in der Kundenkommunikation.",
			"Sehr gute Deutschkenntnisse in Wort und Schrift.",
			"Selbststaendige, zuverlaessige Arbeitsweise.",
		},
		Offer: []string{
			"Flexible Arbeitszeiten mit Remote-Anteil.",
			"Klare Prozesse und feste Ansprechpartner.",
			"Entwicklungsperspektiven in einem wachsenden Umfeld.",
		},
		Facts: Facts{
			Date:       "05.12.2025",
			Salary:     "ab 15EUR / Stunde",
			Employment: "Teilzeit",
			Experience: "erste Erfahrung von Vorteil",
			Deadline:   "31.03.2026",
		},
	},
	{
		Slug:    "junior-content-marketing",
		Title:   "Junior Content & Marketing Assistenz (m/w/d)",
		Summary: "Unterstuetzung bei Content-Erstellung, Kampagnen-Umsetzung und Auswertung.",
		Tasks: []string{
			"Erstellung und Pflege von Website- und Social-Media-Inhalten.",
			"Unterstuetzung bei Kampagnenplanung und Umsetzung.",
			"Auswertung einfacher KPIs und Reporting fuer das Team.",
		},
		Profile: []string{
			"Interesse an digitalem Marketing und redaktioneller Arbeit.",
			"Sicherer Umgang mit deutscher Rechtschreibung.",
			"Strukturierte Arbeitsweise und Teamfaehigkeit.",
		},
		Offer: []string{
			"Praxisnahe Einarbeitung und Mentoring.",
			"Flexible Arbeitsmodelle.",
			"Direkte Zusammenarbeit mit Beratung und Projektmanagement.",
		},
		Facts: Facts{
			Date:       "10.01.2026",
			Salary:     "nach Vereinbarung",
			Employment: "Teilzeit / Werkstudent",
			Experience: "nicht erforderlich",
			Deadline:   "30.04.2026",
		},
	},
}
